package storage

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/retriever-io/retriever/pkg/versioning"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("data"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

var drugbankPattern = regexp.MustCompile(`^drugbank_(.+)\.csv$`)

// --- Latest ---

func TestLatest_EmptyDirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := Latest(dir, "drugbank_*.csv", drugbankPattern, versioning.Numeric{})
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Latest(empty dir): got %v, want NotFoundError", err)
	}
}

func TestLatest_NumericNotLexicographic(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFiles(t, dir, "x_1.0.ext", "x_2.3.ext", "x_2.10.ext")

	got, err := Latest(dir, "x_*.ext", regexp.MustCompile(`^x_(.+)\.ext$`), versioning.Numeric{})
	if err != nil {
		t.Fatalf("Latest: unexpected error: %v", err)
	}
	if want := "2.10"; got.Version != want {
		t.Errorf("Latest version = %q, want %q", got.Version, want)
	}
	if filepath.Base(got.Path) != "x_2.10.ext" {
		t.Errorf("Latest path = %q, want x_2.10.ext", got.Path)
	}
}

func TestLatest_SingleFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFiles(t, dir, "drugbank_5.1.10.csv")

	got, err := Latest(dir, "drugbank_*.csv", drugbankPattern, versioning.Numeric{})
	if err != nil {
		t.Fatalf("Latest: unexpected error: %v", err)
	}
	if got.Version != "5.1.10" {
		t.Errorf("Latest version = %q, want 5.1.10", got.Version)
	}
}

// --- Scan ---

func TestScan_SkipsUnrelatedFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFiles(t, dir, "drugbank_5.1.9.csv", "drugbank_5.1.10.csv", "notes.txt", "drugbank_backup.csv")

	got, err := Scan(dir, "drugbank_*.csv", regexp.MustCompile(`^drugbank_([\d.]+)\.csv$`), versioning.Numeric{})
	if err != nil {
		t.Fatalf("Scan: unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Scan returned %d candidates, want 2: %+v", len(got), got)
	}
	if got[0].Version != "5.1.10" || got[1].Version != "5.1.9" {
		t.Errorf("Scan order = [%s, %s], want [5.1.10, 5.1.9]", got[0].Version, got[1].Version)
	}
}

func TestScan_DateOrdering(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFiles(t, dir, "rxnorm_20230102.RRF", "rxnorm_20240601.RRF", "rxnorm_20231203.RRF")

	got, err := Scan(dir, "rxnorm_*.RRF", regexp.MustCompile(`^rxnorm_(\d+)\.RRF$`), versioning.Date{})
	if err != nil {
		t.Fatalf("Scan: unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Scan returned %d candidates, want 3", len(got))
	}
	if got[0].Version != "20240601" {
		t.Errorf("newest = %q, want 20240601", got[0].Version)
	}
}

func TestScan_MissingDirectory(t *testing.T) {
	t.Parallel()
	_, err := Scan(filepath.Join(t.TempDir(), "absent"), "*", drugbankPattern, versioning.Numeric{})
	if err == nil {
		t.Error("Scan(missing dir): expected error, got nil")
	}
}

// --- Ledger ---

func TestLedger_RoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	dataFile := filepath.Join(dir, "drugbank_5.1.10.csv")
	if err := os.WriteFile(dataFile, []byte("a,b,c\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLedger()
	l.Record("drugbank", "5.1.10", []string{dataFile})

	path := LedgerPath(dir)
	if err := l.Save(path); err != nil {
		t.Fatalf("Save: unexpected error: %v", err)
	}

	loaded, err := LoadLedger(path)
	if err != nil {
		t.Fatalf("LoadLedger: unexpected error: %v", err)
	}
	entry, ok := loaded.Get("drugbank")
	if !ok {
		t.Fatal("LoadLedger: drugbank entry missing")
	}
	if entry.Version != "5.1.10" {
		t.Errorf("entry version = %q, want 5.1.10", entry.Version)
	}
	if sum := entry.Checksums[dataFile]; len(sum) != 64 {
		t.Errorf("checksum = %q, want 64 hex chars", sum)
	}
}

func TestLoadLedger_Missing(t *testing.T) {
	t.Parallel()
	l, err := LoadLedger(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("LoadLedger(missing): unexpected error: %v", err)
	}
	if len(l.Entries) != 0 {
		t.Error("LoadLedger(missing): expected empty ledger")
	}
}
