// Package sources assembles the built-in dataset sources. Each constructor
// wires a remote-version strategy, a naming scheme, and a download strategy
// into one generic source.Source; per-source behavior is data passed to the
// core, not a subtype of it.
package sources

import (
	"net/http"

	"github.com/retriever-io/retriever/pkg/download"
	"github.com/retriever-io/retriever/pkg/source"
)

// Options carries the per-source knobs common to every constructor.
type Options struct {
	// DataDir overrides the environment-derived data directory.
	DataDir string
	// Progress, when set, receives byte counts during downloads.
	Progress download.Progress
}

// Constructor builds a source around an injected HTTP client.
type Constructor func(client *http.Client, opts Options) *source.Source

// Registry maps source names to their constructors, for the CLI dispatch.
func Registry() map[string]Constructor {
	return map[string]Constructor{
		"chembl":              NewChembl,
		"chemidplus":          NewChemIDplus,
		"do":                  NewDiseaseOntology,
		"drugbank":            NewDrugBank,
		"drugsatfda":          NewDrugsAtFDA,
		"guidetopharmacology": NewGuideToPharmacology,
		"hemonc":              NewHemOnc,
		"mondo":               NewMondo,
		"ncit":                NewNCIt,
		"oncotree":            NewOncoTree,
		"rxnorm":              NewRxNorm,
	}
}

// Names lists the built-in source names in sorted order.
func Names() []string {
	return []string{
		"chembl",
		"chemidplus",
		"do",
		"drugbank",
		"drugsatfda",
		"guidetopharmacology",
		"hemonc",
		"mondo",
		"ncit",
		"oncotree",
		"rxnorm",
	}
}
