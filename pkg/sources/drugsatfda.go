package sources

import (
	"net/http"

	"github.com/retriever-io/retriever/pkg/download"
	"github.com/retriever-io/retriever/pkg/source"
	"github.com/retriever-io/retriever/pkg/versioning"
)

var (
	drugsAtFDAInfoURL     = "https://api.fda.gov/download.json"
	drugsAtFDADownloadURL = "https://download.open.fda.gov/drug/drugsfda/drug-drugsfda-0001-of-0001.json.zip"
)

// NewDrugsAtFDA provides the Drugs@FDA product database, versioned by the
// openFDA export date.
func NewDrugsAtFDA(client *http.Client, opts Options) *source.Source {
	return &source.Source{
		Name:     "drugsatfda",
		FileType: "json",
		Scheme:   versioning.Date{},
		DataDir:  opts.DataDir,
		Latest: func() (source.Remote, error) {
			var payload struct {
				Results struct {
					Drug struct {
						DrugsFDA struct {
							ExportDate string `json:"export_date"`
						} `json:"drugsfda"`
					} `json:"drug"`
				} `json:"results"`
			}
			if err := getJSON(client, drugsAtFDAInfoURL, &payload); err != nil {
				return source.Remote{}, err
			}
			version, err := (versioning.Date{Layout: "2006-01-02"}).Canonicalize(payload.Results.Drug.DrugsFDA.ExportDate)
			if err != nil {
				return source.Remote{}, &source.RemoteDataError{
					Source: "drugsatfda",
					Reason: "unable to parse export date from download API",
					Err:    err,
				}
			}
			return source.Remote{Version: version}, nil
		},
		Download: func(remote source.Remote, dests map[string]string) error {
			return download.Fetch(client, drugsAtFDADownloadURL, dests[""], download.Options{
				PostProcess: download.ZipMember("*.json"),
				Progress:    opts.Progress,
			})
		},
	}
}
