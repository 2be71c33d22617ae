package sources

import (
	"net/http"
	"regexp"

	"github.com/retriever-io/retriever/pkg/download"
	"github.com/retriever-io/retriever/pkg/source"
	"github.com/retriever-io/retriever/pkg/versioning"
)

var chemidplusURL = "https://ftp.nlm.nih.gov/projects/chemidlease/CurrentChemID.xml"

// The release date sits in the opening element, so a ranged request over the
// first few hundred bytes is enough to version the file.
var chemidplusDatePattern = regexp.MustCompile(` date="([0-9]{4}-[0-9]{2}-[0-9]{2})">`)

// NewChemIDplus provides the ChemIDplus chemical identifier file.
func NewChemIDplus(client *http.Client, opts Options) *source.Source {
	return &source.Source{
		Name:     "chemidplus",
		FileType: "xml",
		Scheme:   versioning.Date{},
		DataDir:  opts.DataDir,
		Latest: func() (source.Remote, error) {
			head, err := getText(client, chemidplusURL, http.Header{"Range": []string{"bytes=0-300"}})
			if err != nil {
				return source.Remote{}, err
			}
			m := chemidplusDatePattern.FindStringSubmatch(head)
			if m == nil {
				return source.Remote{}, &source.RemoteDataError{
					Source: "chemidplus",
					Reason: "unable to parse release date from file header",
				}
			}
			version, err := (versioning.Date{Layout: "2006-01-02"}).Canonicalize(m[1])
			if err != nil {
				return source.Remote{}, &source.RemoteDataError{
					Source: "chemidplus", Reason: "malformed release date " + m[1], Err: err,
				}
			}
			return source.Remote{Version: version}, nil
		},
		Download: func(remote source.Remote, dests map[string]string) error {
			return download.Fetch(client, chemidplusURL, dests[""], download.Options{Progress: opts.Progress})
		},
	}
}
