package sources

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/retriever-io/retriever/pkg/download"
	"github.com/retriever-io/retriever/pkg/source"
	"github.com/retriever-io/retriever/pkg/versioning"
)

// CustomDefinition declares a user-defined source in a TOML file, for data
// that needs no code beyond an endpoint and a URL template:
//
//	name = "mydata"
//	filetype = "tsv"
//
//	[version]
//	scheme = "date"            # "numeric" | "date" | "semver"
//	layout = "2006-01-02"      # date only: layout the endpoint publishes
//	endpoint = "https://example.org/releases.json"
//	json_field = "version"     # or: pattern = "Release (\\d+\\.\\d+)"
//
//	[download]
//	url = "https://example.org/data_{version}.tsv"
//	extract = "zip:*.tsv"      # optional: zip:<glob> | targz:<glob> | zip-largest | gzip
type CustomDefinition struct {
	Name     string        `toml:"name"`
	FileType string        `toml:"filetype"`
	Version  customVersion `toml:"version"`
	Download customFetch   `toml:"download"`
}

type customVersion struct {
	Scheme    string `toml:"scheme"`
	Layout    string `toml:"layout"`
	Endpoint  string `toml:"endpoint"`
	JSONField string `toml:"json_field"`
	Pattern   string `toml:"pattern"`
}

type customFetch struct {
	URL     string `toml:"url"`
	Extract string `toml:"extract"`
}

// LoadCustom reads and validates a custom source definition file.
func LoadCustom(path string) (*CustomDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading source definition: %w", err)
	}
	var def CustomDefinition
	if err := toml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing source definition: %w", err)
	}
	if err := def.validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

func (d *CustomDefinition) validate() error {
	switch {
	case d.Name == "":
		return &source.ConfigurationError{Reason: "custom source needs a name"}
	case d.FileType == "":
		return &source.ConfigurationError{Reason: "custom source needs a filetype"}
	case d.Version.Endpoint == "":
		return &source.ConfigurationError{Reason: "custom source needs a version endpoint"}
	case d.Version.JSONField == "" && d.Version.Pattern == "":
		return &source.ConfigurationError{Reason: "custom source needs a version json_field or pattern"}
	case d.Version.JSONField != "" && d.Version.Pattern != "":
		return &source.ConfigurationError{Reason: "version json_field and pattern are mutually exclusive"}
	case d.Download.URL == "":
		return &source.ConfigurationError{Reason: "custom source needs a download url"}
	}
	if _, err := d.scheme(); err != nil {
		return err
	}
	if d.Version.Pattern != "" {
		if _, err := regexp.Compile(d.Version.Pattern); err != nil {
			return &source.ConfigurationError{Reason: fmt.Sprintf("invalid version pattern: %v", err)}
		}
	}
	if _, err := d.postProcess(); err != nil {
		return err
	}
	return nil
}

// scheme is the Source's scheme: it orders canonical tokens, so a date scheme
// is always the canonical layout. The declared layout applies only when
// parsing the remote form (see remoteScheme).
func (d *CustomDefinition) scheme() (versioning.Scheme, error) {
	switch d.Version.Scheme {
	case "", "numeric":
		return versioning.Numeric{}, nil
	case "date":
		return versioning.Date{}, nil
	case "semver":
		return versioning.SemVer{}, nil
	default:
		return nil, &source.ConfigurationError{Reason: "unknown version scheme: " + d.Version.Scheme}
	}
}

// remoteScheme canonicalizes the token as the endpoint publishes it.
func (d *CustomDefinition) remoteScheme() (versioning.Scheme, error) {
	if d.Version.Scheme == "date" && d.Version.Layout != "" {
		return versioning.Date{Layout: d.Version.Layout}, nil
	}
	return d.scheme()
}

func (d *CustomDefinition) postProcess() (download.PostProcess, error) {
	extract := d.Download.Extract
	switch {
	case extract == "":
		return nil, nil
	case extract == "gzip":
		return download.Gunzip(), nil
	case extract == "zip-largest":
		return download.LargestZipMember(), nil
	case strings.HasPrefix(extract, "zip:"):
		return download.ZipMember(strings.TrimPrefix(extract, "zip:")), nil
	case strings.HasPrefix(extract, "targz:"):
		return download.TarGzMember(strings.TrimPrefix(extract, "targz:")), nil
	default:
		return nil, &source.ConfigurationError{Reason: "unknown extract directive: " + extract}
	}
}

// Source assembles the declared strategies into a runnable source.
func (d *CustomDefinition) Source(client *http.Client, opts Options) *source.Source {
	scheme, _ := d.scheme() // validated at load time
	remoteForm, _ := d.remoteScheme()
	hook, _ := d.postProcess()
	return &source.Source{
		Name:     d.Name,
		FileType: d.FileType,
		Scheme:   scheme,
		DataDir:  opts.DataDir,
		Latest: func() (source.Remote, error) {
			raw, err := d.resolveRawVersion(client)
			if err != nil {
				return source.Remote{}, err
			}
			// the remote layout is canonicalized here; storage stays canonical
			version, err := remoteForm.Canonicalize(raw)
			if err != nil {
				return source.Remote{}, &source.RemoteDataError{
					Source: d.Name, Reason: fmt.Sprintf("version %q does not fit the %s scheme", raw, d.Version.Scheme), Err: err,
				}
			}
			return source.Remote{Version: version}, nil
		},
		Download: func(remote source.Remote, dests map[string]string) error {
			url := strings.ReplaceAll(d.Download.URL, "{version}", remote.Version)
			return download.Fetch(client, url, dests[""], download.Options{
				PostProcess: hook,
				Progress:    opts.Progress,
			})
		},
	}
}

func (d *CustomDefinition) resolveRawVersion(client *http.Client) (string, error) {
	if d.Version.JSONField != "" {
		var payload map[string]json.RawMessage
		if err := getJSON(client, d.Version.Endpoint, &payload); err != nil {
			return "", err
		}
		var raw string
		if err := json.Unmarshal(payload[d.Version.JSONField], &raw); err != nil || raw == "" {
			return "", &source.RemoteDataError{
				Source: d.Name,
				Reason: fmt.Sprintf("field %q missing from version endpoint response", d.Version.JSONField),
			}
		}
		return raw, nil
	}

	body, err := getText(client, d.Version.Endpoint, nil)
	if err != nil {
		return "", err
	}
	m := regexp.MustCompile(d.Version.Pattern).FindStringSubmatch(body)
	if len(m) < 2 {
		return "", &source.RemoteDataError{
			Source: d.Name,
			Reason: "version pattern matched nothing in endpoint response",
		}
	}
	return m[1], nil
}
