package sources

import (
	"fmt"
	"net/http"
	"regexp"

	"github.com/retriever-io/retriever/pkg/download"
	"github.com/retriever-io/retriever/pkg/source"
	"github.com/retriever-io/retriever/pkg/versioning"
)

var chemblBaseURL = "https://ftp.ebi.ac.uk/pub/databases/chembl/ChEMBLdb/latest"

var chemblReleasePattern = regexp.MustCompile(`\*\s*Release:\s*chembl_(\d+)`)

// NewChembl provides the ChEMBL SQLite database. The version is scraped from
// the release README; the payload is one member of a release tarball.
func NewChembl(client *http.Client, opts Options) *source.Source {
	return &source.Source{
		Name:     "chembl",
		FileType: "db",
		Scheme:   versioning.Numeric{},
		DataDir:  opts.DataDir,
		Latest: func() (source.Remote, error) {
			body, err := getText(client, chemblBaseURL+"/README", nil)
			if err != nil {
				return source.Remote{}, err
			}
			m := chemblReleasePattern.FindStringSubmatch(body)
			if m == nil {
				return source.Remote{}, &source.RemoteDataError{
					Source: "chembl",
					Reason: "unable to parse latest version from release README",
				}
			}
			return source.Remote{Version: m[1]}, nil
		},
		Download: func(remote source.Remote, dests map[string]string) error {
			url := fmt.Sprintf("%s/chembl_%s_sqlite.tar.gz", chemblBaseURL, remote.Version)
			return download.Fetch(client, url, dests[""], download.Options{
				PostProcess: download.TarGzMember("chembl_*.db"),
				Progress:    opts.Progress,
			})
		},
	}
}
