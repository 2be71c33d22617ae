package download

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ZipMember extracts the single archive member whose name matches nameGlob
// (path.Match syntax, matched against the member's base name and full path)
// and places it at the destination.
func ZipMember(nameGlob string) PostProcess {
	return func(tmpPath, dest string) error {
		zr, err := zip.OpenReader(tmpPath)
		if err != nil {
			return &ProcessingError{Path: tmpPath, Reason: "opening zip archive", Err: err}
		}
		defer zr.Close()

		for _, f := range zr.File {
			if !matchMember(f.Name, nameGlob) {
				continue
			}
			return extractZipFile(f, dest)
		}
		return &ProcessingError{Path: tmpPath, Reason: "no zip member matching " + nameGlob}
	}
}

// LargestZipMember extracts the biggest member of the archive, for sources
// that ship one payload file alongside small metadata.
func LargestZipMember() PostProcess {
	return func(tmpPath, dest string) error {
		zr, err := zip.OpenReader(tmpPath)
		if err != nil {
			return &ProcessingError{Path: tmpPath, Reason: "opening zip archive", Err: err}
		}
		defer zr.Close()

		var largest *zip.File
		for _, f := range zr.File {
			if f.FileInfo().IsDir() {
				continue
			}
			if largest == nil || f.UncompressedSize64 > largest.UncompressedSize64 {
				largest = f
			}
		}
		if largest == nil {
			return &ProcessingError{Path: tmpPath, Reason: "zip archive has no file members"}
		}
		return extractZipFile(largest, dest)
	}
}

// ZipMembers extracts several members of one archive, mapping each member
// glob to its own final path. All listed members must be present; a missing
// one fails the whole extraction with nothing placed at any destination.
// The dest argument of the returned hook is ignored.
func ZipMembers(members map[string]string) PostProcess {
	return func(tmpPath, _ string) error {
		zr, err := zip.OpenReader(tmpPath)
		if err != nil {
			return &ProcessingError{Path: tmpPath, Reason: "opening zip archive", Err: err}
		}
		defer zr.Close()

		found := make(map[string]*zip.File, len(members))
		for _, f := range zr.File {
			for memberGlob := range members {
				if matchMember(f.Name, memberGlob) {
					found[memberGlob] = f
				}
			}
		}
		for memberGlob := range members {
			if found[memberGlob] == nil {
				return &ProcessingError{Path: tmpPath, Reason: "no zip member matching " + memberGlob}
			}
		}

		// Stage every member before renaming any, so a failure partway
		// through leaves all destinations untouched.
		staged := make(map[string]string, len(members))
		defer func() {
			for _, s := range staged {
				os.Remove(s)
			}
		}()
		for memberGlob, f := range found {
			s, err := stageZipFile(f, members[memberGlob])
			if err != nil {
				return err
			}
			staged[memberGlob] = s
		}
		for memberGlob, s := range staged {
			if err := place(s, members[memberGlob]); err != nil {
				return &ProcessingError{Path: members[memberGlob], Reason: "placing extracted file", Err: err}
			}
			delete(staged, memberGlob)
		}
		return nil
	}
}

// TarGzMember extracts the single member of a gzipped tarball whose name
// matches nameGlob and places it at the destination.
func TarGzMember(nameGlob string) PostProcess {
	return func(tmpPath, dest string) error {
		f, err := os.Open(tmpPath)
		if err != nil {
			return &ProcessingError{Path: tmpPath, Reason: "opening archive", Err: err}
		}
		defer f.Close()

		gz, err := gzip.NewReader(f)
		if err != nil {
			return &ProcessingError{Path: tmpPath, Reason: "reading gzip stream", Err: err}
		}
		defer gz.Close()

		tr := tar.NewReader(gz)
		for {
			hdr, err := tr.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return &ProcessingError{Path: tmpPath, Reason: "reading tar stream", Err: err}
			}
			if hdr.Typeflag != tar.TypeReg || !matchMember(hdr.Name, nameGlob) {
				continue
			}
			return writeExtracted(tr, dest)
		}
		return &ProcessingError{Path: tmpPath, Reason: "no tar member matching " + nameGlob}
	}
}

// Gunzip decompresses a plain gzipped download into the destination.
func Gunzip() PostProcess {
	return func(tmpPath, dest string) error {
		f, err := os.Open(tmpPath)
		if err != nil {
			return &ProcessingError{Path: tmpPath, Reason: "opening download", Err: err}
		}
		defer f.Close()

		gz, err := gzip.NewReader(f)
		if err != nil {
			return &ProcessingError{Path: tmpPath, Reason: "reading gzip stream", Err: err}
		}
		defer gz.Close()

		return writeExtracted(gz, dest)
	}
}

// matchMember matches an archive member name against a path.Match glob,
// trying the full (slash-normalized) path first and the base name second.
func matchMember(name, nameGlob string) bool {
	name = strings.ReplaceAll(name, "\\", "/")
	if ok, _ := path.Match(nameGlob, name); ok {
		return true
	}
	ok, _ := path.Match(nameGlob, path.Base(name))
	return ok
}

func extractZipFile(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return &ProcessingError{Path: f.Name, Reason: "opening zip member", Err: err}
	}
	defer rc.Close()
	return writeExtracted(rc, dest)
}

// stageZipFile extracts a member into a temporary file next to dest, without
// touching dest itself, and returns the temporary path.
func stageZipFile(f *zip.File, dest string) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", &ProcessingError{Path: f.Name, Reason: "opening zip member", Err: err}
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", &ProcessingError{Path: dest, Reason: "creating destination directory", Err: err}
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".retriever-extract-*")
	if err != nil {
		return "", &ProcessingError{Path: dest, Reason: "creating temporary file", Err: err}
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", &ProcessingError{Path: dest, Reason: "writing extracted content", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", &ProcessingError{Path: dest, Reason: "closing temporary file", Err: err}
	}
	return tmpName, nil
}

// writeExtracted streams extracted content through a temporary file so the
// destination is never visible half-written.
func writeExtracted(r io.Reader, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return &ProcessingError{Path: dest, Reason: "creating destination directory", Err: err}
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".retriever-extract-*")
	if err != nil {
		return &ProcessingError{Path: dest, Reason: "creating temporary file", Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return &ProcessingError{Path: dest, Reason: "writing extracted content", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &ProcessingError{Path: dest, Reason: "closing temporary file", Err: err}
	}
	if err := place(tmpName, dest); err != nil {
		return &ProcessingError{Path: dest, Reason: "placing extracted file", Err: err}
	}
	return nil
}
