package fetcher

import (
	"context"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPFetcher downloads over FTP. Credentials come from the URL's userinfo;
// without one the login is anonymous.
type FTPFetcher struct {
	Timeout time.Duration
}

// NewFTPFetcher returns a fetcher with a 30 second dial timeout.
func NewFTPFetcher() *FTPFetcher {
	return &FTPFetcher{Timeout: 30 * time.Second}
}

type ftpTarget struct {
	addr     string
	path     string
	user     string
	password string
}

func parseFTPURL(rawURL string) (ftpTarget, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ftpTarget{}, eris.Wrap(err, "ftp: parse url")
	}
	if u.Scheme != "ftp" {
		return ftpTarget{}, eris.Errorf("ftp: unsupported scheme %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		return ftpTarget{}, eris.Errorf("ftp: no file path in %s", rawURL)
	}

	t := ftpTarget{addr: u.Host, path: u.Path, user: "anonymous", password: "anonymous@"}
	if u.Port() == "" {
		t.addr = net.JoinHostPort(u.Hostname(), "21")
	}
	if u.User != nil {
		t.user = u.User.Username()
		t.password, _ = u.User.Password()
	}
	return t, nil
}

// Fetch retrieves rawURL into dest over one control connection.
func (f *FTPFetcher) Fetch(ctx context.Context, rawURL, dest string) (int64, error) {
	t, err := parseFTPURL(rawURL)
	if err != nil {
		return 0, err
	}

	timeout := f.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	conn, err := ftp.Dial(t.addr, ftp.DialWithTimeout(timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return 0, eris.Wrapf(err, "ftp: dial %s", t.addr)
	}
	defer conn.Quit() //nolint:errcheck

	if err := conn.Login(t.user, t.password); err != nil {
		return 0, eris.Wrap(err, "ftp: login")
	}

	resp, err := conn.Retr(t.path)
	if err != nil {
		return 0, eris.Wrapf(err, "ftp: retrieve %s", t.path)
	}
	n, err := saveAtomic(dest, resp)
	if cerr := resp.Close(); err == nil && cerr != nil {
		return n, eris.Wrap(cerr, "ftp: close transfer")
	}
	if err != nil {
		return n, err
	}

	zap.L().Debug("ftp: retrieved", zap.String("addr", t.addr), zap.String("path", t.path), zap.Int64("bytes", n))
	return n, nil
}
