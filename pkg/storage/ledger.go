package storage

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// LedgerFileName is the provenance record kept alongside cached data.
const LedgerFileName = ".retriever-ledger.json"

// Ledger records what was fetched, when, and with which checksums. It is
// informational provenance for diagnostics; nothing in the engine reads it
// back to make freshness decisions.
type Ledger struct {
	// Version of the ledger format.
	Version int `json:"version"`
	// Entries keyed by source name.
	Entries map[string]LedgerEntry `json:"entries"`
}

// LedgerEntry is the resolved state of one source's most recent fetch.
type LedgerEntry struct {
	Source    string            `json:"source"`
	Version   string            `json:"version"`
	Paths     []string          `json:"paths"`
	Checksums map[string]string `json:"checksums"` // path -> hex SHA-256
	FetchedAt string            `json:"fetched_at"` // RFC 3339
}

// NewLedger returns an initialised empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		Version: 1,
		Entries: make(map[string]LedgerEntry),
	}
}

// LoadLedger reads the ledger at path. A missing file yields an empty ledger.
func LoadLedger(path string) (*Ledger, error) {
	l := NewLedger()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	if err := json.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("parsing ledger: %w", err)
	}
	if l.Entries == nil {
		l.Entries = make(map[string]LedgerEntry)
	}
	return l, nil
}

// Save writes the ledger to the given path.
func (l *Ledger) Save(path string) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}
	return nil
}

// Record captures a completed fetch. Checksums are computed from the files on
// disk; a file that cannot be read is recorded without one rather than
// failing the fetch after the fact.
func (l *Ledger) Record(source, version string, paths []string) {
	checksums := make(map[string]string, len(paths))
	for _, p := range paths {
		if sum, err := fileChecksum(p); err == nil {
			checksums[p] = sum
		}
	}
	l.Entries[source] = LedgerEntry{
		Source:    source,
		Version:   version,
		Paths:     paths,
		Checksums: checksums,
		FetchedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// Get retrieves a source's entry, if one exists.
func (l *Ledger) Get(source string) (LedgerEntry, bool) {
	e, ok := l.Entries[source]
	return e, ok
}

// LedgerPath returns the ledger location for a data directory.
func LedgerPath(dir string) string {
	return filepath.Join(dir, LedgerFileName)
}

// fileChecksum returns the hex-encoded SHA-256 of a file's contents.
func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
