package fetcher

import (
	"archive/zip"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Archive lists the files extracted from a ZIP.
type Archive []string

// Find returns the first extracted file matching the earliest extension in
// exts (case-insensitive), or "".
func (a Archive) Find(exts ...string) string {
	for _, ext := range exts {
		for _, p := range a {
			if strings.EqualFold(filepath.Ext(p), ext) {
				return p
			}
		}
	}
	return ""
}

// Unzip extracts zipPath into destDir. macOS resource forks and hidden
// files are skipped; entries that would land outside destDir are an error.
func Unzip(zipPath, destDir string) (Archive, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrapf(err, "zip: open %s", zipPath)
	}
	defer zr.Close() //nolint:errcheck

	root := filepath.Clean(destDir) + string(os.PathSeparator)
	var out Archive
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || skipEntry(f.Name) {
			continue
		}
		dest := filepath.Join(destDir, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(dest, root) {
			return nil, eris.Errorf("zip: entry %q escapes %s", f.Name, destDir)
		}
		if err := extract(f, dest); err != nil {
			return nil, err
		}
		out = append(out, dest)
	}
	return out, nil
}

func skipEntry(name string) bool {
	if strings.HasPrefix(name, "__MACOSX/") {
		return true
	}
	return strings.HasPrefix(path.Base(name), ".")
}

func extract(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return eris.Wrapf(err, "zip: open entry %s", f.Name)
	}
	defer rc.Close() //nolint:errcheck

	if _, err := saveAtomic(dest, rc); err != nil {
		return eris.Wrapf(err, "zip: extract %s", f.Name)
	}
	return nil
}
