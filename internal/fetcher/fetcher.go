// Package fetcher turns reference-data sources (local paths, http(s) and ftp
// URLs, ZIP archives) into local files, and streams the CSV, JSON and XLSX
// documents attribute tables and crosswalks arrive in.
package fetcher

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Fetcher copies one remote file to a local path and reports the bytes
// written.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, dest string) (int64, error)
}

// saveAtomic writes r to a .part sibling of dest and renames it into place.
// dest is untouched when the copy fails.
func saveAtomic(dest string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, eris.Wrap(err, "fetcher: create directory")
	}
	part := dest + ".part"
	f, err := os.Create(part)
	if err != nil {
		return 0, eris.Wrap(err, "fetcher: create file")
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(part)
		return n, eris.Wrap(err, "fetcher: write file")
	}
	if err := os.Rename(part, dest); err != nil {
		_ = os.Remove(part)
		return n, eris.Wrap(err, "fetcher: rename file")
	}
	return n, nil
}
