package fetcher

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Resolver turns a reference-data source (local path, http(s) URL, or ftp
// URL) into a local file, downloading and unzipping as needed.
type Resolver struct {
	HTTP    Fetcher
	FTP     Fetcher
	TempDir string
}

// NewResolver creates a Resolver with default HTTP and FTP fetchers.
func NewResolver(tempDir string) *Resolver {
	return &Resolver{
		HTTP:    NewHTTPFetcher(),
		FTP:     NewFTPFetcher(),
		TempDir: tempDir,
	}
}

// IsRemote reports whether src is a URL the resolver would download.
func IsRemote(src string) bool {
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https", "ftp":
		return true
	}
	return false
}

// Resolve returns a local path for src. Remote sources are downloaded into
// TempDir once; later calls reuse the file. A ZIP is extracted next to its
// download (or into TempDir for local archives) when exts are given, and the
// member matching the earliest extension is returned.
func (r *Resolver) Resolve(ctx context.Context, src string, exts ...string) (string, error) {
	local := src
	if IsRemote(src) {
		p, err := r.download(ctx, src)
		if err != nil {
			return "", err
		}
		local = p
	} else if _, err := os.Stat(src); err != nil {
		return "", eris.Wrapf(err, "fetcher: stat %s", src)
	}

	if len(exts) == 0 || !strings.EqualFold(filepath.Ext(local), ".zip") {
		return local, nil
	}

	stem := strings.TrimSuffix(filepath.Base(local), filepath.Ext(local))
	archive, err := Unzip(local, filepath.Join(r.tempDir(), stem))
	if err != nil {
		return "", err
	}
	if p := archive.Find(exts...); p != "" {
		return p, nil
	}
	return "", eris.Errorf("fetcher: no %s file in %s", strings.Join(exts, "/"), src)
}

func (r *Resolver) tempDir() string {
	if r.TempDir == "" {
		return filepath.Join(os.TempDir(), "choropleth")
	}
	return r.TempDir
}

func (r *Resolver) download(ctx context.Context, src string) (string, error) {
	u, err := url.Parse(src)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: parse url")
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return "", eris.Errorf("fetcher: cannot derive file name from %s", src)
	}
	dest := filepath.Join(r.tempDir(), name)

	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		zap.L().Debug("fetcher: reusing download", zap.String("path", dest))
		return dest, nil
	}

	f := r.HTTP
	if u.Scheme == "ftp" {
		f = r.FTP
	}
	if f == nil {
		return "", eris.Errorf("fetcher: no fetcher for scheme %q", u.Scheme)
	}

	n, err := f.Fetch(ctx, src, dest)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: download %s", src)
	}
	zap.L().Info("fetcher: downloaded", zap.String("url", src), zap.Int64("bytes", n))
	return dest, nil
}
