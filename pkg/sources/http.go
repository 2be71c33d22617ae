package sources

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/retriever-io/retriever/pkg/download"
)

// getJSON fetches url and decodes the JSON body into out. Transport and
// status failures are NetworkErrors; a body that does not decode is not —
// callers decide whether that is a RemoteDataError for their source.
func getJSON(client *http.Client, url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		return &download.NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &download.NetworkError{URL: url, Status: resp.Status}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", url, err)
	}
	return nil
}

// getText fetches url and returns the body as a string, for sources that
// publish their version inside HTML or README text.
func getText(client *http.Client, url string, headers http.Header) (string, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return "", &download.NetworkError{URL: url, Err: err}
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", &download.NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return "", &download.NetworkError{URL: url, Status: resp.Status}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &download.NetworkError{URL: url, Err: err}
	}
	return string(body), nil
}

// probe reports whether url answers 200 to a GET. The body is not read; the
// connection is dropped rather than draining a possibly large file.
func probe(client *http.Client, url string) bool {
	resp, err := client.Get(url)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
