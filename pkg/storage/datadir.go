// Package storage locates the on-disk data directory and scans it for cached,
// version-named dataset files.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const appDirName = "retriever"

// dataDirEnvVar overrides the whole base directory lookup when set.
const dataDirEnvVar = "RETRIEVER_DIR"

// BaseDir resolves the base data directory. Precedence:
//
//  1. the RETRIEVER_DIR environment variable
//  2. $XDG_DATA_HOME/retriever
//  3. the first usable entry of $XDG_DATA_DIRS (colon-separated; entries that
//     are existing regular files are skipped)
//  4. ~/.local/share/retriever
//
// The chosen directory is created if absent.
func BaseDir() (string, error) {
	dir, err := resolveBaseDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating data directory %s: %w", dir, err)
	}
	return dir, nil
}

func resolveBaseDir() (string, error) {
	if v := os.Getenv(dataDirEnvVar); v != "" {
		return v, nil
	}
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return filepath.Join(v, appDirName), nil
	}
	if v := os.Getenv("XDG_DATA_DIRS"); v != "" {
		for _, entry := range strings.Split(v, ":") {
			if entry == "" {
				continue
			}
			candidate := filepath.Join(entry, appDirName)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				continue
			}
			return candidate, nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", appDirName), nil
}

// SourceDir resolves the per-source data directory, creating it if absent.
// A non-empty explicit path wins over every environment-derived location.
func SourceDir(explicit, source string) (string, error) {
	if explicit != "" {
		if err := os.MkdirAll(explicit, 0o755); err != nil {
			return "", fmt.Errorf("creating data directory %s: %w", explicit, err)
		}
		return explicit, nil
	}
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, source)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating data directory %s: %w", dir, err)
	}
	return dir, nil
}
