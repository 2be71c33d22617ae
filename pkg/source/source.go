// Package source turns a handful of injected strategies — a remote-version
// resolver, a download strategy, a naming scheme — into the per-dataset
// retrieval state machine: decide whether the local cache is current, fetch a
// fresh snapshot when it is not, and hand back paths plus the resolved
// version.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/sirupsen/logrus"

	"github.com/retriever-io/retriever/pkg/storage"
	"github.com/retriever-io/retriever/pkg/versioning"
)

// Policy selects how GetLatest reconciles local and remote state.
type Policy struct {
	// FromLocal answers from the cache only; the network is never contacted.
	FromLocal bool
	// ForceRefresh fetches from the remote even when a matching local copy
	// exists. Mutually exclusive with FromLocal.
	ForceRefresh bool
}

// Remote is the resolved remote state of a source: the latest version and,
// for sources whose version endpoint also names the download location, a URL.
type Remote struct {
	Version string
	URL     string
}

// LatestFunc resolves the source's latest remote version. Implementations
// fail with RemoteDataError when the response is received but unusable.
type LatestFunc func() (Remote, error)

// DownloadFunc fetches one snapshot. dests maps member names (the empty
// string for single-file sources) to final paths; implementations must place
// either every listed file or none.
type DownloadFunc func(remote Remote, dests map[string]string) error

// VersionsFunc lists known versions, newest first. Optional; only sources
// with enumerable releases provide it.
type VersionsFunc func() ([]string, error)

// Source is a versioned dataset assembled from injected strategies. Per-source
// behavior lives in the strategy values, not in subtypes.
type Source struct {
	// Name keys the cache subdirectory and filename prefix.
	Name string
	// FileType is the cached file's extension, without the dot.
	FileType string
	// Scheme orders this source's version identifiers.
	Scheme versioning.Scheme
	// Members names the files of a multi-file group. Empty for single-file
	// sources.
	Members []string
	// Latest resolves the newest remote version.
	Latest LatestFunc
	// Download fetches a snapshot into the cache.
	Download DownloadFunc
	// Versions enumerates known versions, newest first. Optional.
	Versions VersionsFunc
	// DataDir overrides the environment-derived data directory when set.
	DataDir string
}

// Result is a resolved snapshot: member name -> path, plus the version.
type Result struct {
	Paths   map[string]string
	Version string
}

// Path returns the single file of a single-file source.
func (r Result) Path() string {
	return r.Paths[""]
}

func (s *Source) members() []string {
	if len(s.Members) == 0 {
		return []string{""}
	}
	return s.Members
}

// filename is the cache naming convention: <source>_<version>.<ext>, with a
// member segment (<source>_<member>_<version>.<ext>) for grouped sources.
// Existing caches depend on it.
func (s *Source) filename(member, version string) string {
	if member == "" {
		return fmt.Sprintf("%s_%s.%s", s.Name, version, s.FileType)
	}
	return fmt.Sprintf("%s_%s_%s.%s", s.Name, member, version, s.FileType)
}

func (s *Source) memberGlob(member string) string {
	if member == "" {
		return fmt.Sprintf("%s_*.%s", s.Name, s.FileType)
	}
	return fmt.Sprintf("%s_%s_*.%s", s.Name, member, s.FileType)
}

func (s *Source) memberPattern(member string) *regexp.Regexp {
	if member == "" {
		return regexp.MustCompile(fmt.Sprintf(`^%s_(.+)\.%s$`, regexp.QuoteMeta(s.Name), regexp.QuoteMeta(s.FileType)))
	}
	return regexp.MustCompile(fmt.Sprintf(`^%s_%s_(.+)\.%s$`, regexp.QuoteMeta(s.Name), regexp.QuoteMeta(member), regexp.QuoteMeta(s.FileType)))
}

// GetLatest resolves the current best snapshot under the given policy and
// returns its location(s) and version.
func (s *Source) GetLatest(policy Policy) (Result, error) {
	if policy.FromLocal && policy.ForceRefresh {
		return Result{}, &ConfigurationError{Reason: "cannot set both FromLocal and ForceRefresh"}
	}

	dir, err := storage.SourceDir(s.DataDir, s.Name)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", s.Name, err)
	}

	if policy.FromLocal {
		return s.latestLocal(dir)
	}

	remote, err := s.Latest()
	if err != nil {
		return Result{}, fmt.Errorf("%s: resolving latest version: %w", s.Name, err)
	}
	version, err := s.Scheme.Canonicalize(remote.Version)
	if err != nil {
		return Result{}, &RemoteDataError{Source: s.Name, Reason: "remote version " + remote.Version + " does not fit the source's scheme", Err: err}
	}
	remote.Version = version

	dests := make(map[string]string, len(s.members()))
	for _, m := range s.members() {
		dests[m] = filepath.Join(dir, s.filename(m, version))
	}

	if !policy.ForceRefresh {
		if hit, degraded := cacheState(dests); hit {
			logrus.WithFields(logrus.Fields{"source": s.Name, "version": version}).
				Debug("existing files match latest version")
			return Result{Paths: dests, Version: version}, nil
		} else if degraded {
			// Partial groups are re-fetched whole, never repaired file by file.
			logrus.WithFields(logrus.Fields{"source": s.Name, "version": version}).
				Warn("only some group members present locally, attempting full download")
		}
	}

	if err := s.fetch(remote, dir, dests); err != nil {
		return Result{}, err
	}
	return Result{Paths: dests, Version: version}, nil
}

// GetSpecific resolves one named version rather than the latest. The download
// strategy receives only the version and derives the rest.
func (s *Source) GetSpecific(version string, policy Policy) (Result, error) {
	if policy.FromLocal && policy.ForceRefresh {
		return Result{}, &ConfigurationError{Reason: "cannot set both FromLocal and ForceRefresh"}
	}
	version, err := s.Scheme.Canonicalize(version)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", s.Name, err)
	}

	dir, err := storage.SourceDir(s.DataDir, s.Name)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", s.Name, err)
	}

	dests := make(map[string]string, len(s.members()))
	for _, m := range s.members() {
		dests[m] = filepath.Join(dir, s.filename(m, version))
	}

	hit, degraded := cacheState(dests)
	if policy.FromLocal {
		if !hit {
			return Result{}, fmt.Errorf("%s: %w", s.Name,
				&storage.NotFoundError{Dir: dir, Glob: s.filename("*", version)})
		}
		return Result{Paths: dests, Version: version}, nil
	}

	if !policy.ForceRefresh {
		if hit {
			return Result{Paths: dests, Version: version}, nil
		}
		if degraded {
			logrus.WithFields(logrus.Fields{"source": s.Name, "version": version}).
				Warn("only some group members present locally, attempting full download")
		}
	}

	if err := s.fetch(Remote{Version: version}, dir, dests); err != nil {
		return Result{}, err
	}
	return Result{Paths: dests, Version: version}, nil
}

// latestLocal answers entirely from the cache. For groups, each member's
// newest file is taken and the version reported is the first member's.
func (s *Source) latestLocal(dir string) (Result, error) {
	paths := make(map[string]string, len(s.members()))
	version := ""
	for _, m := range s.members() {
		candidate, err := storage.Latest(dir, s.memberGlob(m), s.memberPattern(m), s.Scheme)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", s.Name, err)
		}
		paths[m] = candidate.Path
		if version == "" {
			version = candidate.Version
		}
	}
	return Result{Paths: paths, Version: version}, nil
}

// fetch runs the download strategy and records provenance. A group download
// either places every member or fails as a unit.
func (s *Source) fetch(remote Remote, dir string, dests map[string]string) error {
	if err := s.Download(remote, dests); err != nil {
		return fmt.Errorf("%s: %w", s.Name, err)
	}

	paths := make([]string, 0, len(dests))
	for _, p := range dests {
		paths = append(paths, p)
	}
	ledgerPath := storage.LedgerPath(dir)
	ledger, err := storage.LoadLedger(ledgerPath)
	if err == nil {
		ledger.Record(s.Name, remote.Version, paths)
		err = ledger.Save(ledgerPath)
	}
	if err != nil {
		// provenance only; a broken ledger never fails a finished fetch
		logrus.WithField("source", s.Name).WithError(err).Warn("could not update fetch ledger")
	}
	return nil
}

// cacheState reports whether every destination already exists, and whether
// the group is degraded (some but not all present).
func cacheState(dests map[string]string) (hit, degraded bool) {
	present := 0
	for _, p := range dests {
		if _, err := os.Stat(p); err == nil {
			present++
		}
	}
	return present == len(dests), present > 0 && present < len(dests)
}

// IsNotFound reports whether err means "no local data yet".
func IsNotFound(err error) bool {
	var nf *storage.NotFoundError
	return errors.As(err, &nf)
}
