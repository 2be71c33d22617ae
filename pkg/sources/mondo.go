package sources

import (
	"fmt"
	"net/http"
	"time"

	"github.com/retriever-io/retriever/pkg/download"
	"github.com/retriever-io/retriever/pkg/source"
	"github.com/retriever-io/retriever/pkg/versioning"
)

const mondoRepo = "monarch-initiative/mondo"

// mondoTagScheme translates between release tags like v2024-05-06 and
// canonical date versions.
var mondoTagScheme = versioning.Date{Layout: "v2006-01-02"}

// NewMondo provides the Mondo disease ontology, published as GitHub release
// assets. Specific back versions are reachable by tag, so Versions is wired.
func NewMondo(client *http.Client, opts Options) *source.Source {
	return &source.Source{
		Name:     "mondo",
		FileType: "owl",
		Scheme:   versioning.Date{},
		DataDir:  opts.DataDir,
		Latest: func() (source.Remote, error) {
			release, err := latestGithubRelease(client, mondoRepo)
			if err != nil {
				return source.Remote{}, err
			}
			version, err := mondoTagScheme.Canonicalize(release.TagName)
			if err != nil {
				return source.Remote{}, &source.RemoteDataError{
					Source: "mondo",
					Reason: "release tag " + release.TagName + " is not a version tag",
					Err:    err,
				}
			}
			asset, err := releaseAsset("mondo", release, "mondo.owl")
			if err != nil {
				return source.Remote{}, err
			}
			return source.Remote{Version: version, URL: asset.BrowserDownloadURL}, nil
		},
		Download: func(remote source.Remote, dests map[string]string) error {
			url := remote.URL
			if url == "" {
				// requested by version: rebuild the asset URL from the tag
				released, err := time.Parse(versioning.CanonicalDateLayout, remote.Version)
				if err != nil {
					return &source.RemoteDataError{Source: "mondo", Reason: "malformed version " + remote.Version, Err: err}
				}
				url = fmt.Sprintf("%s/%s/releases/download/%s/mondo.owl",
					githubDownloadBase, mondoRepo, released.Format("v2006-01-02"))
			}
			return download.Fetch(client, url, dests[""], download.Options{Progress: opts.Progress})
		},
		Versions: func() ([]string, error) {
			return githubReleaseVersions(client, mondoRepo, "mondo", mondoTagScheme)
		},
	}
}

// githubReleaseVersions lists a repo's release tags as canonical versions,
// newest first. Tags that do not fit the scheme are skipped.
func githubReleaseVersions(client *http.Client, repo, sourceName string, scheme versioning.Scheme) ([]string, error) {
	releases, err := githubReleases(client, repo)
	if err != nil {
		return nil, err
	}
	var versions []string
	for _, r := range releases {
		if v, err := scheme.Canonicalize(r.TagName); err == nil {
			versions = append(versions, v)
		}
	}
	if len(versions) == 0 {
		return nil, &source.RemoteDataError{Source: sourceName, Reason: "no version tags among releases of " + repo}
	}
	return versions, nil
}
