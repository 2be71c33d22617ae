package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/gobwas/glob"
	"github.com/sirupsen/logrus"

	"github.com/retriever-io/retriever/pkg/versioning"
)

// NotFoundError reports that no cached file matched a scan. It is a
// recoverable condition: the orchestrator reads it as "no local data yet".
type NotFoundError struct {
	Dir  string
	Glob string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no file in %s matching %s", e.Dir, e.Glob)
}

// Candidate is one cached file discovered during a scan.
type Candidate struct {
	Path    string
	Version string
}

// Scan enumerates files in dir whose names match globPattern, extracts the
// version embedded in each name via versionPattern, and returns the
// candidates ordered newest-first under the given scheme. Files that match
// the glob but not the version pattern are skipped, not failed: a cache
// directory may hold unrelated files.
func Scan(dir, globPattern string, versionPattern *regexp.Regexp, scheme versioning.Scheme) ([]Candidate, error) {
	g, err := glob.Compile(globPattern)
	if err != nil {
		return nil, fmt.Errorf("compiling glob %q: %w", globPattern, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var candidates []Candidate
	for _, entry := range entries {
		if entry.IsDir() || !g.Match(entry.Name()) {
			continue
		}
		raw, err := versioning.FromFilename(entry.Name(), versionPattern)
		if err != nil {
			logrus.WithFields(logrus.Fields{"dir": dir, "file": entry.Name()}).
				Debug("skipping file without parseable version")
			continue
		}
		version, err := scheme.Canonicalize(raw)
		if err != nil {
			logrus.WithFields(logrus.Fields{"dir": dir, "file": entry.Name()}).
				Debug("skipping file with malformed version")
			continue
		}
		candidates = append(candidates, Candidate{
			Path:    filepath.Join(dir, entry.Name()),
			Version: version,
		})
	}

	// Versions are canonical by now, so Compare cannot fail.
	sort.Slice(candidates, func(i, j int) bool {
		c, _ := scheme.Compare(candidates[i].Version, candidates[j].Version)
		return c > 0
	})
	return candidates, nil
}

// Latest returns the newest cached candidate, or NotFoundError when the
// directory holds nothing that matches.
func Latest(dir, globPattern string, versionPattern *regexp.Regexp, scheme versioning.Scheme) (Candidate, error) {
	candidates, err := Scan(dir, globPattern, versionPattern, scheme)
	if err != nil {
		return Candidate{}, err
	}
	if len(candidates) == 0 {
		return Candidate{}, &NotFoundError{Dir: dir, Glob: globPattern}
	}
	logrus.WithField("file", candidates[0].Path).Debug("most recent locally-available file")
	return candidates[0], nil
}
