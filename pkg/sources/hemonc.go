package sources

import (
	"net/http"
	"strings"

	"github.com/retriever-io/retriever/pkg/download"
	"github.com/retriever-io/retriever/pkg/source"
	"github.com/retriever-io/retriever/pkg/versioning"
)

var (
	hemoncExportURL   = "https://dataverse.harvard.edu/api/datasets/export?persistentId=doi:10.7910/DVN/9CY9C6&exporter=dataverse_json"
	hemoncDownloadURL = "https://dataverse.harvard.edu/api/access/dataset/:persistentId/?persistentId=doi:10.7910/DVN/9CY9C6"
)

const dataverseAPIKeyEnvVar = "HARVARD_DATAVERSE_API_KEY"

// NewHemOnc provides the HemOnc oncology reference. One Dataverse archive
// yields three co-versioned files (concepts, rels, synonyms) that form a
// single group: all three must match a version for the cache to count as hit.
func NewHemOnc(client *http.Client, opts Options) *source.Source {
	return &source.Source{
		Name:     "hemonc",
		FileType: "csv",
		Scheme:   versioning.Date{},
		Members:  []string{"concepts", "rels", "synonyms"},
		DataDir:  opts.DataDir,
		Latest: func() (source.Remote, error) {
			var payload struct {
				DatasetVersion struct {
					CreateTime string `json:"createTime"`
				} `json:"datasetVersion"`
			}
			if err := getJSON(client, hemoncExportURL, &payload); err != nil {
				return source.Remote{}, err
			}
			date, _, found := strings.Cut(payload.DatasetVersion.CreateTime, "T")
			if !found {
				return source.Remote{}, &source.RemoteDataError{
					Source: "hemonc",
					Reason: "unable to parse version from dataset export",
				}
			}
			version, err := (versioning.Date{Layout: "2006-01-02"}).Canonicalize(date)
			if err != nil {
				return source.Remote{}, &source.RemoteDataError{
					Source: "hemonc",
					Reason: "unable to parse version from dataset export",
					Err:    err,
				}
			}
			return source.Remote{Version: version}, nil
		},
		Download: func(remote source.Remote, dests map[string]string) error {
			key, err := apiKey("hemonc", dataverseAPIKeyEnvVar)
			if err != nil {
				return err
			}
			members := map[string]string{
				"*concepts*": dests["concepts"],
				"*rels*":     dests["rels"],
				"*synonyms*": dests["synonyms"],
			}
			return download.Fetch(client, hemoncDownloadURL, dests["concepts"], download.Options{
				Headers:     http.Header{"X-Dataverse-Key": []string{key}},
				PostProcess: download.ZipMembers(members),
				Progress:    opts.Progress,
			})
		},
	}
}
