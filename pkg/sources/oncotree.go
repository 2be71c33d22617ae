package sources

import (
	"net/http"

	"github.com/retriever-io/retriever/pkg/download"
	"github.com/retriever-io/retriever/pkg/source"
	"github.com/retriever-io/retriever/pkg/versioning"
)

var oncotreeBaseURL = "https://oncotree.info/api"

// NewOncoTree provides the OncoTree tumor classification, versioned by the
// release date of the latest stable API version.
func NewOncoTree(client *http.Client, opts Options) *source.Source {
	return &source.Source{
		Name:     "oncotree",
		FileType: "json",
		Scheme:   versioning.Date{},
		DataDir:  opts.DataDir,
		Latest: func() (source.Remote, error) {
			var versions []struct {
				APIIdentifier string `json:"api_identifier"`
				ReleaseDate   string `json:"release_date"`
			}
			if err := getJSON(client, oncotreeBaseURL+"/versions", &versions); err != nil {
				return source.Remote{}, err
			}
			for _, v := range versions {
				if v.APIIdentifier != "oncotree_latest_stable" {
					continue
				}
				version, err := (versioning.Date{Layout: "2006-01-02"}).Canonicalize(v.ReleaseDate)
				if err != nil {
					return source.Remote{}, &source.RemoteDataError{
						Source: "oncotree", Reason: "malformed release date " + v.ReleaseDate, Err: err,
					}
				}
				return source.Remote{Version: version}, nil
			}
			return source.Remote{}, &source.RemoteDataError{
				Source: "oncotree",
				Reason: "unable to locate latest stable version",
			}
		},
		Download: func(remote source.Remote, dests map[string]string) error {
			url := oncotreeBaseURL + "/tumorTypes/tree?version=oncotree_latest_stable"
			return download.Fetch(client, url, dests[""], download.Options{Progress: opts.Progress})
		},
	}
}
