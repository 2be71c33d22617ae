package sources

import (
	"net/http"
	"time"

	"github.com/retriever-io/retriever/pkg/download"
	"github.com/retriever-io/retriever/pkg/source"
	"github.com/retriever-io/retriever/pkg/versioning"
)

const doRepo = "DiseaseOntology/HumanDiseaseOntology"

var doTagScheme = versioning.Date{Layout: "v2006-01-02"}

// NewDiseaseOntology provides the Human Disease Ontology. Releases carry no
// standalone asset, so the OWL file is pulled out of the release tarball.
func NewDiseaseOntology(client *http.Client, opts Options) *source.Source {
	return &source.Source{
		Name:     "do",
		FileType: "owl",
		Scheme:   versioning.Date{},
		DataDir:  opts.DataDir,
		Latest: func() (source.Remote, error) {
			versions, err := githubReleaseVersions(client, doRepo, "do", doTagScheme)
			if err != nil {
				return source.Remote{}, err
			}
			return source.Remote{Version: versions[0]}, nil
		},
		Download: func(remote source.Remote, dests map[string]string) error {
			released, err := time.Parse(versioning.CanonicalDateLayout, remote.Version)
			if err != nil {
				return &source.RemoteDataError{Source: "do", Reason: "malformed version " + remote.Version, Err: err}
			}
			release, err := githubReleaseByTag(client, doRepo, released.Format("v2006-01-02"))
			if err != nil {
				return err
			}
			if release.TarballURL == "" {
				return &source.RemoteDataError{Source: "do", Reason: "release " + release.TagName + " has no tarball"}
			}
			return download.Fetch(client, release.TarballURL, dests[""], download.Options{
				PostProcess: download.TarGzMember("*/src/ontology/doid.owl"),
				Progress:    opts.Progress,
			})
		},
		Versions: func() ([]string, error) {
			return githubReleaseVersions(client, doRepo, "do", doTagScheme)
		},
	}
}
