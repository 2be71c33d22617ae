package download

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

// Transfer pairs one URL with its destination path.
type Transfer struct {
	URL  string
	Dest string
}

// FetchAll downloads every transfer or none. Each file is fetched into a
// staging path next to its destination; only after all transfers complete is
// the set renamed into place, so a failure partway through leaves every
// destination untouched.
func FetchAll(client *http.Client, transfers []Transfer, opts Options) error {
	staged := make([]string, len(transfers))
	defer func() {
		for _, s := range staged {
			if s != "" {
				os.Remove(s)
			}
		}
	}()

	for i, tr := range transfers {
		f, err := os.CreateTemp(filepath.Dir(tr.Dest), ".retriever-stage-*")
		if err != nil {
			return fmt.Errorf("creating staging file for %s: %w", tr.Dest, err)
		}
		staging := f.Name()
		f.Close()
		staged[i] = staging

		if err := Fetch(client, tr.URL, staging, opts); err != nil {
			return err
		}
	}

	for i, tr := range transfers {
		if err := place(staged[i], tr.Dest); err != nil {
			return err
		}
		staged[i] = ""
	}
	return nil
}
