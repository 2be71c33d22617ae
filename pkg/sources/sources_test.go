package sources

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/retriever-io/retriever/pkg/source"
	"github.com/retriever-io/retriever/pkg/versioning"
)

// swap points a package-level URL var at a test server and restores it.
func swap(t *testing.T, target *string, value string) {
	t.Helper()
	old := *target
	*target = value
	t.Cleanup(func() { *target = old })
}

func makeZip(t *testing.T, members map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range members {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating zip member: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("writing zip member: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

func makeTarGz(t *testing.T, members map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	for name, content := range members {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("writing tar header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("writing tar member: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("closing gzip: %v", err)
	}
	return buf.Bytes()
}

func readCached(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading cached file: %v", err)
	}
	return string(data)
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		t.Fatalf("reading data dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no cached files, found %d", len(entries))
	}
}

// --- registry ---

func TestRegistryAndNamesAgree(t *testing.T) {
	t.Parallel()
	registry := Registry()
	names := Names()
	if len(registry) != len(names) {
		t.Fatalf("Registry has %d entries, Names lists %d", len(registry), len(names))
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("Names() is not sorted: %v", names)
	}
	for _, n := range names {
		if registry[n] == nil {
			t.Errorf("Names lists %q but Registry has no constructor for it", n)
		}
	}
}

// --- drugbank ---

func TestDrugBankGetLatest(t *testing.T) {
	downloads := 0
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()
	mux.HandleFunc("/releases.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"version": "5.1.12", "url": "` + server.URL + `/releases/5-1-12"},
			{"version": "5.1.11", "url": "` + server.URL + `/releases/5-1-11"}]`))
	})
	mux.HandleFunc("/releases/5-1-12/downloads/all-drugbank-vocabulary", func(w http.ResponseWriter, r *http.Request) {
		downloads++
		w.Write(makeZip(t, map[string]string{"drugbank vocabulary.csv": "id,name\n"}))
	})
	swap(t, &drugbankReleasesURL, server.URL+"/releases.json")

	dir := t.TempDir()
	src := NewDrugBank(server.Client(), Options{DataDir: dir})

	result, err := src.GetLatest(source.Policy{})
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if result.Version != "5.1.12" {
		t.Errorf("version = %q, want 5.1.12", result.Version)
	}
	if got, want := filepath.Base(result.Path()), "drugbank_5.1.12.csv"; got != want {
		t.Errorf("cached file = %q, want %q", got, want)
	}
	if got := readCached(t, result.Path()); got != "id,name\n" {
		t.Errorf("cached content = %q", got)
	}

	// a second call must be answered from the cache
	if _, err := src.GetLatest(source.Policy{}); err != nil {
		t.Fatalf("second GetLatest: %v", err)
	}
	if downloads != 1 {
		t.Errorf("download count = %d, want 1", downloads)
	}
}

func TestDrugBankEmptyReleaseListing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()
	swap(t, &drugbankReleasesURL, server.URL)

	dir := t.TempDir()
	src := NewDrugBank(server.Client(), Options{DataDir: dir})
	_, err := src.GetLatest(source.Policy{})
	var remoteErr *source.RemoteDataError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("error = %v, want RemoteDataError", err)
	}
	assertEmptyDir(t, dir)
}

// --- chembl ---

func TestChemblGetLatest(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()
	mux.HandleFunc("/README", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ChEMBL Release Notes\n*  Release:       chembl_34\n*  Date: 2024\n"))
	})
	mux.HandleFunc("/chembl_34_sqlite.tar.gz", func(w http.ResponseWriter, r *http.Request) {
		w.Write(makeTarGz(t, map[string]string{
			"chembl_34/chembl_34_sqlite/chembl_34.db": "sqlite bytes",
			"chembl_34/README":                        "notes",
		}))
	})
	swap(t, &chemblBaseURL, server.URL)

	src := NewChembl(server.Client(), Options{DataDir: t.TempDir()})
	result, err := src.GetLatest(source.Policy{})
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if result.Version != "34" {
		t.Errorf("version = %q, want 34", result.Version)
	}
	if got, want := filepath.Base(result.Path()), "chembl_34.db"; got != want {
		t.Errorf("cached file = %q, want %q", got, want)
	}
	if got := readCached(t, result.Path()); got != "sqlite bytes" {
		t.Errorf("cached content = %q", got)
	}
}

func TestChemblUnparseableREADME(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("nothing useful here"))
	}))
	defer server.Close()
	swap(t, &chemblBaseURL, server.URL)

	src := NewChembl(server.Client(), Options{DataDir: t.TempDir()})
	_, err := src.GetLatest(source.Policy{})
	var remoteErr *source.RemoteDataError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("error = %v, want RemoteDataError", err)
	}
}

// --- rxnorm ---

func TestRxNormGetLatest(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()
	mux.HandleFunc("/version.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"version": "06-May-2024", "apiVersion": "3.1"}`))
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apiKey") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write(makeZip(t, map[string]string{
			"rrf/RXNCONSO.RRF": "concept rows",
			"rrf/RXNREL.RRF":   "rel rows",
		}))
	})
	swap(t, &rxnormVersionURL, server.URL+"/version.json")
	swap(t, &umlsDownloadURL, server.URL+"/download")
	t.Setenv(umlsAPIKeyEnvVar, "test-key")

	src := NewRxNorm(server.Client(), Options{DataDir: t.TempDir()})
	result, err := src.GetLatest(source.Policy{})
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if result.Version != "20240506" {
		t.Errorf("version = %q, want 20240506", result.Version)
	}
	if got, want := filepath.Base(result.Path()), "rxnorm_20240506.RRF"; got != want {
		t.Errorf("cached file = %q, want %q", got, want)
	}
	if got := readCached(t, result.Path()); got != "concept rows" {
		t.Errorf("cached content = %q", got)
	}
}

func TestRxNormMissingAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"version": "06-May-2024"}`))
	}))
	defer server.Close()
	swap(t, &rxnormVersionURL, server.URL)
	t.Setenv(umlsAPIKeyEnvVar, "")

	dir := t.TempDir()
	src := NewRxNorm(server.Client(), Options{DataDir: dir})
	_, err := src.GetLatest(source.Policy{})
	var remoteErr *source.RemoteDataError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("error = %v, want RemoteDataError", err)
	}
}

// --- mondo ---

func TestMondoGetLatest(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()
	mux.HandleFunc("/repos/monarch-initiative/mondo/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tag_name": "v2024-05-06", "assets": [
			{"name": "mondo.obo", "browser_download_url": "` + server.URL + `/dl/mondo.obo"},
			{"name": "mondo.owl", "browser_download_url": "` + server.URL + `/dl/mondo.owl"}]}`))
	})
	mux.HandleFunc("/dl/mondo.owl", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<owl/>"))
	})
	swap(t, &githubAPIBase, server.URL)

	src := NewMondo(server.Client(), Options{DataDir: t.TempDir()})
	result, err := src.GetLatest(source.Policy{})
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if result.Version != "20240506" {
		t.Errorf("version = %q, want 20240506", result.Version)
	}
	if got, want := filepath.Base(result.Path()), "mondo_20240506.owl"; got != want {
		t.Errorf("cached file = %q, want %q", got, want)
	}
}

func TestMondoVersions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"tag_name": "v2024-05-06"}, {"tag_name": "untagged-build"}, {"tag_name": "v2024-04-01"}]`))
	}))
	defer server.Close()
	swap(t, &githubAPIBase, server.URL)

	src := NewMondo(server.Client(), Options{DataDir: t.TempDir()})
	versions, err := src.Versions()
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	want := []string{"20240506", "20240401"}
	if len(versions) != len(want) {
		t.Fatalf("versions = %v, want %v", versions, want)
	}
	for i := range want {
		if versions[i] != want[i] {
			t.Errorf("versions[%d] = %q, want %q", i, versions[i], want[i])
		}
	}
}

// --- hemonc ---

func TestHemOncGroupDownload(t *testing.T) {
	downloads := 0
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()
	mux.HandleFunc("/export", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"datasetVersion": {"createTime": "2024-03-01T12:00:00Z"}}`))
	})
	mux.HandleFunc("/archive", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Dataverse-Key") != "dv-key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		downloads++
		w.Write(makeZip(t, map[string]string{
			"hemonc_concepts.csv": "concepts",
			"hemonc_rels.csv":     "rels",
			"hemonc_synonyms.csv": "synonyms",
		}))
	})
	swap(t, &hemoncExportURL, server.URL+"/export")
	swap(t, &hemoncDownloadURL, server.URL+"/archive")
	t.Setenv(dataverseAPIKeyEnvVar, "dv-key")

	dir := t.TempDir()
	src := NewHemOnc(server.Client(), Options{DataDir: dir})
	result, err := src.GetLatest(source.Policy{})
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if result.Version != "20240301" {
		t.Errorf("version = %q, want 20240301", result.Version)
	}
	for member, want := range map[string]string{"concepts": "concepts", "rels": "rels", "synonyms": "synonyms"} {
		path, ok := result.Paths[member]
		if !ok {
			t.Fatalf("result has no %s member", member)
		}
		if got := readCached(t, path); got != want {
			t.Errorf("%s content = %q, want %q", member, got, want)
		}
	}

	// a partial group must be refetched whole
	if err := os.Remove(result.Paths["rels"]); err != nil {
		t.Fatalf("removing member: %v", err)
	}
	if _, err := src.GetLatest(source.Policy{}); err != nil {
		t.Fatalf("GetLatest after member loss: %v", err)
	}
	if downloads != 2 {
		t.Errorf("download count = %d, want 2", downloads)
	}
	if _, err := os.Stat(result.Paths["rels"]); err != nil {
		t.Errorf("missing member was not restored: %v", err)
	}
}

// --- guidetopharmacology ---

func TestGuideToPharmacologyAllOrNothing(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>Current Release Version 2024.1 (dated)</html>"))
	})
	mux.HandleFunc("/DATA/ligands.tsv", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ligand rows"))
	})
	mux.HandleFunc("/DATA/ligand_id_mapping.tsv", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	swap(t, &gtopBaseURL, server.URL)

	dir := t.TempDir()
	src := NewGuideToPharmacology(server.Client(), Options{DataDir: dir})
	_, err := src.GetLatest(source.Policy{})
	if err == nil {
		t.Fatal("expected error when one group member fails to download")
	}

	// neither member may be placed
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading source dir: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tsv" {
			t.Errorf("partial group member placed: %s", e.Name())
		}
	}
}

// --- ncit ---

func TestNCItRejectsMalformedVersion(t *testing.T) {
	t.Parallel()
	src := NewNCIt(http.DefaultClient, Options{DataDir: t.TempDir()})
	// too short to be a release identifier; must fail before any URL is built
	_, err := src.GetSpecific("7", source.Policy{})
	var parseErr *versioning.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want ParseError", err)
	}
}

// --- custom ---

func TestLoadCustomValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		toml string
	}{
		{"missing name", `filetype = "tsv"` + "\n" + `[version]` + "\n" + `endpoint = "https://x"` + "\n" + `json_field = "v"` + "\n" + `[download]` + "\n" + `url = "https://x/{version}"`},
		{"missing endpoint", `name = "x"` + "\n" + `filetype = "tsv"` + "\n" + `[version]` + "\n" + `json_field = "v"` + "\n" + `[download]` + "\n" + `url = "https://x/{version}"`},
		{"field and pattern both set", `name = "x"` + "\n" + `filetype = "tsv"` + "\n" + `[version]` + "\n" + `endpoint = "https://x"` + "\n" + `json_field = "v"` + "\n" + `pattern = "(\\d+)"` + "\n" + `[download]` + "\n" + `url = "https://x/{version}"`},
		{"unknown scheme", `name = "x"` + "\n" + `filetype = "tsv"` + "\n" + `[version]` + "\n" + `scheme = "roman"` + "\n" + `endpoint = "https://x"` + "\n" + `json_field = "v"` + "\n" + `[download]` + "\n" + `url = "https://x/{version}"`},
		{"unknown extract", `name = "x"` + "\n" + `filetype = "tsv"` + "\n" + `[version]` + "\n" + `endpoint = "https://x"` + "\n" + `json_field = "v"` + "\n" + `[download]` + "\n" + `url = "https://x/{version}"` + "\n" + `extract = "rar:*"`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "source.toml")
			if err := os.WriteFile(path, []byte(tt.toml), 0o644); err != nil {
				t.Fatalf("writing definition: %v", err)
			}
			_, err := LoadCustom(path)
			var confErr *source.ConfigurationError
			if !errors.As(err, &confErr) {
				t.Fatalf("error = %v, want ConfigurationError", err)
			}
		})
	}
}

func TestCustomSourceGetLatest(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tag": "1.4", "notes": "latest stable"}`))
	})
	mux.HandleFunc("/data_1.4.tsv", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("col1\tcol2\n"))
	})

	def := `
name = "mydata"
filetype = "tsv"

[version]
scheme = "numeric"
endpoint = "` + server.URL + `/version"
json_field = "tag"

[download]
url = "` + server.URL + `/data_{version}.tsv"
`
	path := filepath.Join(t.TempDir(), "mydata.toml")
	if err := os.WriteFile(path, []byte(def), 0o644); err != nil {
		t.Fatalf("writing definition: %v", err)
	}
	loaded, err := LoadCustom(path)
	if err != nil {
		t.Fatalf("LoadCustom: %v", err)
	}

	src := loaded.Source(server.Client(), Options{DataDir: t.TempDir()})
	result, err := src.GetLatest(source.Policy{})
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if result.Version != "1.4" {
		t.Errorf("version = %q, want 1.4", result.Version)
	}
	if got, want := filepath.Base(result.Path()), "mydata_1.4.tsv"; got != want {
		t.Errorf("cached file = %q, want %q", got, want)
	}
	if got := readCached(t, result.Path()); got != "col1\tcol2\n" {
		t.Errorf("cached content = %q", got)
	}
}

func TestCustomSourceVersionPattern(t *testing.T) {
	downloads := 0
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<p>Release 2024-05-06 is out</p>"))
	})
	mux.HandleFunc("/data_20240506.owl", func(w http.ResponseWriter, r *http.Request) {
		downloads++
		w.Write([]byte("<owl/>"))
	})

	def := `
name = "patterned"
filetype = "owl"

[version]
scheme = "date"
layout = "2006-01-02"
endpoint = "` + server.URL + `/version"
pattern = 'Release (\d{4}-\d{2}-\d{2})'

[download]
url = "` + server.URL + `/data_{version}.owl"
`
	path := filepath.Join(t.TempDir(), "patterned.toml")
	if err := os.WriteFile(path, []byte(def), 0o644); err != nil {
		t.Fatalf("writing definition: %v", err)
	}
	loaded, err := LoadCustom(path)
	if err != nil {
		t.Fatalf("LoadCustom: %v", err)
	}

	src := loaded.Source(server.Client(), Options{DataDir: t.TempDir()})
	result, err := src.GetLatest(source.Policy{})
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if result.Version != "20240506" {
		t.Errorf("version = %q, want 20240506", result.Version)
	}
	if got, want := filepath.Base(result.Path()), "patterned_20240506.owl"; got != want {
		t.Errorf("cached file = %q, want %q", got, want)
	}

	// the canonical-named cache file must count as a hit on the next run
	if _, err := src.GetLatest(source.Policy{}); err != nil {
		t.Fatalf("second GetLatest: %v", err)
	}
	if downloads != 1 {
		t.Errorf("download count = %d, want 1", downloads)
	}
}
