package sources

import (
	"net/http"

	"github.com/retriever-io/retriever/pkg/download"
	"github.com/retriever-io/retriever/pkg/source"
	"github.com/retriever-io/retriever/pkg/versioning"
)

var drugbankReleasesURL = "https://go.drugbank.com/releases.json"

// NewDrugBank provides the DrugBank open vocabulary. The releases endpoint
// names both the latest version and its download location, so the remote
// strategy returns a version+URL pair.
func NewDrugBank(client *http.Client, opts Options) *source.Source {
	return &source.Source{
		Name:     "drugbank",
		FileType: "csv",
		Scheme:   versioning.Numeric{},
		DataDir:  opts.DataDir,
		Latest: func() (source.Remote, error) {
			var releases []struct {
				Version string `json:"version"`
				URL     string `json:"url"`
			}
			if err := getJSON(client, drugbankReleasesURL, &releases); err != nil {
				return source.Remote{}, err
			}
			if len(releases) == 0 || releases[0].Version == "" || releases[0].URL == "" {
				return source.Remote{}, &source.RemoteDataError{
					Source: "drugbank",
					Reason: "unable to parse latest version from releases API",
				}
			}
			return source.Remote{Version: releases[0].Version, URL: releases[0].URL}, nil
		},
		Download: func(remote source.Remote, dests map[string]string) error {
			if remote.URL == "" {
				return &source.RemoteDataError{
					Source: "drugbank",
					Reason: "no download URL known for version " + remote.Version,
				}
			}
			return download.Fetch(client, remote.URL+"/downloads/all-drugbank-vocabulary", dests[""], download.Options{
				PostProcess: download.ZipMember("*.csv"),
				Progress:    opts.Progress,
			})
		},
	}
}
