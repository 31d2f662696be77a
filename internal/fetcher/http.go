package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPFetcher downloads over http(s) with a per-host rate limit and retries
// on throttling, server errors and dropped connections.
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
	// Attempts is the total number of tries per file.
	Attempts int

	mu     sync.Mutex
	limits map[string]*rate.Limiter
	wait   func(ctx context.Context, d time.Duration)
}

// censusLimits keeps bulk TIGER and delineation downloads polite.
func censusLimits() map[string]*rate.Limiter {
	return map[string]*rate.Limiter{
		"www2.census.gov": rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
		"www.census.gov":  rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
	}
}

// NewHTTPFetcher returns a fetcher with a 10 minute timeout and 4 attempts.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client:    &http.Client{Timeout: 10 * time.Minute},
		UserAgent: "choropleth/1.0",
		Attempts:  4,
		limits:    censusLimits(),
		wait:      sleepCtx,
	}
}

// statusError is a non-200 response.
type statusError struct {
	code       int
	url        string
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d from %s", e.code, e.url)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

// Fetch downloads rawURL to dest.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL, dest string) (int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, eris.Wrap(err, "http: parse url")
	}
	lim := f.limiter(u.Host)
	attempts := max(f.Attempts, 1)

	for attempt := 1; ; attempt++ {
		if err := lim.Wait(ctx); err != nil {
			return 0, eris.Wrap(err, "http: rate limit wait")
		}

		n, err := f.get(ctx, rawURL, dest)
		if err == nil {
			return n, nil
		}
		if ctx.Err() != nil {
			return 0, eris.Wrap(ctx.Err(), "http: cancelled")
		}

		delay := backoff(attempt)
		var se *statusError
		if eris.As(err, &se) {
			if !se.retryable() {
				return 0, err
			}
			if se.retryAfter > 0 {
				delay = se.retryAfter
			}
		}
		if attempt >= attempts {
			return 0, eris.Wrapf(err, "http: giving up after %d attempts", attempt)
		}

		zap.L().Warn("http: download failed, retrying",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		f.wait(ctx, delay)
	}
}

func (f *HTTPFetcher) get(ctx context.Context, rawURL, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, eris.Wrap(err, "http: create request")
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, eris.Wrap(err, "http: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return 0, &statusError{
			code:       resp.StatusCode,
			url:        rawURL,
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return saveAtomic(dest, resp.Body)
}

func (f *HTTPFetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.limits == nil {
		f.limits = censusLimits()
	}
	lim, ok := f.limits[host]
	if !ok {
		lim = rate.NewLimiter(rate.Every(100*time.Millisecond), 5)
		f.limits[host] = lim
	}
	return lim
}

// backoff is 500ms doubled per attempt, capped at 20s.
func backoff(attempt int) time.Duration {
	d := 500 * time.Millisecond << (attempt - 1)
	if d <= 0 || d > 20*time.Second {
		return 20 * time.Second
	}
	return d
}

// parseRetryAfter reads the delay-seconds form of Retry-After.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
