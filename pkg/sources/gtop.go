package sources

import (
	"net/http"
	"regexp"

	"github.com/retriever-io/retriever/pkg/download"
	"github.com/retriever-io/retriever/pkg/source"
	"github.com/retriever-io/retriever/pkg/versioning"
)

var gtopBaseURL = "https://www.guidetopharmacology.org"

var gtopVersionPattern = regexp.MustCompile(`Current Release Version (\d{4}\.\d+)`)

// NewGuideToPharmacology provides the IUPHAR/BPS Guide to Pharmacology ligand
// tables. The two members are separate downloads fetched as one all-or-nothing
// group.
func NewGuideToPharmacology(client *http.Client, opts Options) *source.Source {
	return &source.Source{
		Name:     "guidetopharmacology",
		FileType: "tsv",
		Scheme:   versioning.Numeric{},
		Members:  []string{"ligands", "ligand_id_mapping"},
		DataDir:  opts.DataDir,
		Latest: func() (source.Remote, error) {
			body, err := getText(client, gtopBaseURL+"/", nil)
			if err != nil {
				return source.Remote{}, err
			}
			m := gtopVersionPattern.FindStringSubmatch(body)
			if m == nil {
				return source.Remote{}, &source.RemoteDataError{
					Source: "guidetopharmacology",
					Reason: "unable to parse current release version from homepage",
				}
			}
			return source.Remote{Version: m[1]}, nil
		},
		Download: func(remote source.Remote, dests map[string]string) error {
			transfers := []download.Transfer{
				{URL: gtopBaseURL + "/DATA/ligands.tsv", Dest: dests["ligands"]},
				{URL: gtopBaseURL + "/DATA/ligand_id_mapping.tsv", Dest: dests["ligand_id_mapping"]},
			}
			return download.FetchAll(client, transfers, download.Options{Progress: opts.Progress})
		},
	}
}
