package sources

import (
	"fmt"
	"net/http"
	"regexp"

	"github.com/retriever-io/retriever/pkg/download"
	"github.com/retriever-io/retriever/pkg/source"
	"github.com/retriever-io/retriever/pkg/versioning"
)

var (
	ncitBrowserURL = "https://ncithesaurus.nci.nih.gov/ncitbrowser/"
	ncitFTPBase    = "https://evs.nci.nih.gov/ftp1/NCI_Thesaurus"
)

var ncitVersionPattern = regexp.MustCompile(`Version:(\d\d\.\d\d\w)`)

// ncitVersionForm is the release identifier shape, e.g. "23.09d". Identifiers
// order correctly as plain strings but must be validated before they are
// spliced into archive URLs.
var ncitVersionForm = regexp.MustCompile(`^\d\d\.\d\d\w$`)

var ncitScheme = versioning.Custom{
	CanonicalizeFunc: func(raw string) (string, error) {
		if !ncitVersionForm.MatchString(raw) {
			return "", &versioning.ParseError{Input: raw, Reason: "not a release identifier like 23.09d"}
		}
		return raw, nil
	},
}

// NewNCIt provides the NCI Thesaurus. Versions like "23.09d" order correctly
// as plain strings, and releases move between archive layouts over time, so
// the download URL is probed across the known locations.
func NewNCIt(client *http.Client, opts Options) *source.Source {
	return &source.Source{
		Name:     "ncit",
		FileType: "owl",
		Scheme:   ncitScheme,
		DataDir:  opts.DataDir,
		Latest: func() (source.Remote, error) {
			body, err := getText(client, ncitBrowserURL, nil)
			if err != nil {
				return source.Remote{}, err
			}
			m := ncitVersionPattern.FindStringSubmatch(body)
			if m == nil {
				return source.Remote{}, &source.RemoteDataError{
					Source: "ncit",
					Reason: "unable to parse version from browser homepage",
				}
			}
			return source.Remote{Version: m[1]}, nil
		},
		Download: func(remote source.Remote, dests map[string]string) error {
			url, err := ncitLocateRelease(client, remote.Version)
			if err != nil {
				return err
			}
			return download.Fetch(client, url, dests[""], download.Options{
				PostProcess: download.LargestZipMember(),
				Progress:    opts.Progress,
			})
		},
	}
}

// ncitLocateRelease probes the current directory and both archive layouts for
// the requested release zip.
func ncitLocateRelease(client *http.Client, version string) (string, error) {
	release := fmt.Sprintf("Thesaurus_%s.OWL.zip", version)
	candidates := []string{
		fmt.Sprintf("%s/%s", ncitFTPBase, release),
		fmt.Sprintf("%s/archive/%s_Release/%s", ncitFTPBase, version, release),
		fmt.Sprintf("%s/archive/20%s/%s_Release/%s", ncitFTPBase, version[0:2], version, release),
	}
	for _, url := range candidates {
		if probe(client, url) {
			return url, nil
		}
	}
	return "", &source.RemoteDataError{
		Source: "ncit",
		Reason: "unable to locate download URL for version " + version,
	}
}
