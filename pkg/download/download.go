// Package download fetches remote files with no partial-file visibility:
// bytes land in a temporary file and only a fully received, fully processed
// artifact is renamed into its destination.
package download

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// NetworkError reports a transport or HTTP-status failure. Retry policy is
// the caller's concern; nothing here retries.
type NetworkError struct {
	URL    string
	Status string
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetching %s: %s", e.URL, e.Status)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ProcessingError reports a post-processing step that could not produce the
// expected artifact from a successfully downloaded blob.
type ProcessingError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ProcessingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("processing %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("processing %s: %s", e.Path, e.Reason)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// Progress receives cumulative byte counts as a transfer proceeds. total is
// -1 when the server does not announce a length. It is a side channel only:
// its absence never affects download correctness.
type Progress func(received, total int64)

// PostProcess turns a fully received temporary download into the final
// artifact at dest, e.g. by extracting one archive member. Implementations
// must not leave a partial file at dest on failure.
type PostProcess func(tmpPath, dest string) error

// Options adjust a single fetch.
type Options struct {
	// Headers are merged into the request, e.g. API-key headers.
	Headers http.Header
	// PostProcess, when set, produces the destination artifact from the raw
	// download instead of a plain rename.
	PostProcess PostProcess
	// Progress, when set, is invoked with byte counts during the transfer.
	Progress Progress
}

// Fetch downloads url into dest. The raw bytes are written next to dest under
// a temporary name; only on full receipt (and successful post-processing) does
// anything appear at the destination path. On any failure the temporary file
// is removed and dest is left exactly as it was.
func Fetch(client *http.Client, url, dest string, opts Options) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return &NetworkError{URL: url, Err: err}
	}
	for k, vs := range opts.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &NetworkError{URL: url, Status: resp.Status}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", dest, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".retriever-*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	var body io.Reader = resp.Body
	if opts.Progress != nil {
		body = &progressReader{r: resp.Body, total: resp.ContentLength, report: opts.Progress}
	}

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return &NetworkError{URL: url, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temporary file: %w", err)
	}

	if opts.PostProcess != nil {
		if err := opts.PostProcess(tmpName, dest); err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{"url": url, "dest": dest}).Debug("download processed")
		return nil
	}

	if err := place(tmpName, dest); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"url": url, "dest": dest}).Debug("download complete")
	return nil
}

// place atomically moves a finished temporary file into dest.
func place(tmpName, dest string) error {
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("setting mode on %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("moving download into place: %w", err)
	}
	return nil
}

// progressReader reports cumulative byte counts as it is read from.
type progressReader struct {
	r        io.Reader
	total    int64
	received int64
	report   Progress
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.received += int64(n)
		p.report(p.received, p.total)
	}
	return n, err
}
