package sources

import (
	"fmt"
	"net/http"
	"time"

	"github.com/retriever-io/retriever/pkg/download"
	"github.com/retriever-io/retriever/pkg/source"
	"github.com/retriever-io/retriever/pkg/versioning"
)

var (
	rxnormVersionURL  = "https://rxnav.nlm.nih.gov/REST/version.json"
	rxnormDownloadURL = "https://download.nlm.nih.gov/umls/kss/rxnorm"
	umlsDownloadURL   = "https://uts-ws.nlm.nih.gov/download"
)

// umlsAPIKeyEnvVar must hold a UMLS license key; RxNorm downloads are gated
// behind it.
const umlsAPIKeyEnvVar = "UMLS_API_KEY"

// NewRxNorm provides the RxNorm monthly full release. The RRF concepts file
// is extracted from the release zip; downloads require a UMLS API key.
func NewRxNorm(client *http.Client, opts Options) *source.Source {
	return &source.Source{
		Name:     "rxnorm",
		FileType: "RRF",
		Scheme:   versioning.Date{},
		DataDir:  opts.DataDir,
		Latest: func() (source.Remote, error) {
			var payload struct {
				Version string `json:"version"`
			}
			if err := getJSON(client, rxnormVersionURL, &payload); err != nil {
				return source.Remote{}, err
			}
			version, err := versioning.Date{Layout: "02-Jan-2006"}.Canonicalize(payload.Version)
			if err != nil {
				return source.Remote{}, &source.RemoteDataError{
					Source: "rxnorm",
					Reason: fmt.Sprintf("unable to parse version %q from API endpoint %s", payload.Version, rxnormVersionURL),
					Err:    err,
				}
			}
			return source.Remote{Version: version}, nil
		},
		Download: func(remote source.Remote, dests map[string]string) error {
			key, err := apiKey("rxnorm", umlsAPIKeyEnvVar)
			if err != nil {
				return err
			}
			released, err := time.Parse(versioning.CanonicalDateLayout, remote.Version)
			if err != nil {
				return &source.RemoteDataError{Source: "rxnorm", Reason: "malformed version " + remote.Version, Err: err}
			}
			archive := fmt.Sprintf("%s/RxNorm_full_%s.zip", rxnormDownloadURL, released.Format("01022006"))
			url := fmt.Sprintf("%s?url=%s&apiKey=%s", umlsDownloadURL, archive, key)
			return download.Fetch(client, url, dests[""], download.Options{
				PostProcess: download.ZipMember("rrf/RXNCONSO.RRF"),
				Progress:    opts.Progress,
			})
		},
	}
}
