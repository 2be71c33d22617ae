package sources

import (
	"fmt"
	"net/http"

	"github.com/retriever-io/retriever/pkg/source"
)

// githubAPIBase is a var so tests can point release lookups at a local server.
var githubAPIBase = "https://api.github.com"

// githubDownloadBase is the host serving release asset downloads.
var githubDownloadBase = "https://github.com"

type githubRelease struct {
	TagName    string        `json:"tag_name"`
	TarballURL string        `json:"tarball_url"`
	Assets     []githubAsset `json:"assets"`
}

type githubAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// latestGithubRelease fetches the release GitHub marks as latest.
func latestGithubRelease(client *http.Client, repo string) (githubRelease, error) {
	var release githubRelease
	url := fmt.Sprintf("%s/repos/%s/releases/latest", githubAPIBase, repo)
	if err := getJSON(client, url, &release); err != nil {
		return githubRelease{}, err
	}
	return release, nil
}

// githubReleases fetches the release listing, newest first.
func githubReleases(client *http.Client, repo string) ([]githubRelease, error) {
	var releases []githubRelease
	url := fmt.Sprintf("%s/repos/%s/releases", githubAPIBase, repo)
	if err := getJSON(client, url, &releases); err != nil {
		return nil, err
	}
	return releases, nil
}

// githubReleaseByTag fetches one release by its tag name.
func githubReleaseByTag(client *http.Client, repo, tag string) (githubRelease, error) {
	var release githubRelease
	url := fmt.Sprintf("%s/repos/%s/releases/tags/%s", githubAPIBase, repo, tag)
	if err := getJSON(client, url, &release); err != nil {
		return githubRelease{}, err
	}
	return release, nil
}

// releaseAsset finds a release's asset by exact name.
func releaseAsset(sourceName string, release githubRelease, name string) (githubAsset, error) {
	for _, a := range release.Assets {
		if a.Name == name {
			return a, nil
		}
	}
	return githubAsset{}, &source.RemoteDataError{
		Source: sourceName,
		Reason: fmt.Sprintf("release %s has no asset named %s", release.TagName, name),
	}
}
