// Package fetcher downloads playlist text over HTTP with SSRF
// protection, a redirect cap, a byte cap, and a request timeout.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/canalize/canalize/internal/safeurl"
)

var (
	ErrBadRedirect      = errors.New("redirect without location")
	ErrTooManyRedirects = errors.New("too many redirects")
	ErrEmptyResponse    = errors.New("empty response body")
	ErrTooLarge         = errors.New("response exceeds byte limit")
)

// Config drives a Fetcher. Zero values are replaced with defaults by New.
type Config struct {
	// Allowlist restricts which hostnames may be fetched. Empty allows
	// any public host (private/reserved IPs stay blocked).
	Allowlist []string

	// MaxRedirects is the number of redirect hops followed after the
	// initial request. Default: 2.
	MaxRedirects int

	// Timeout bounds each HTTP request. Default: 20s.
	Timeout time.Duration

	// MaxBytes caps the response body size. Default: 5_000_000.
	MaxBytes int64

	// UserAgent is sent on every request. Default: "VLC/3.0.0-git"
	// (many providers refuse unknown players).
	UserAgent string

	// CheckURL validates a URL before each hop. Defaults to a
	// safeurl.Guard built from Allowlist. Redirect targets go through
	// the same check as the original URL, so a public host cannot
	// bounce the fetch to a private address.
	CheckURL func(ctx context.Context, rawURL string) error

	// Client may be set for tests. It must not auto-follow redirects;
	// the default client uses http.ErrUseLastResponse.
	Client *http.Client
}

func (c *Config) applyDefaults() {
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = 2
	}
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 5_000_000
	}
	if c.UserAgent == "" {
		c.UserAgent = "VLC/3.0.0-git"
	}
	if c.CheckURL == nil {
		guard := &safeurl.Guard{Allowlist: c.Allowlist}
		c.CheckURL = func(ctx context.Context, rawURL string) error {
			_, err := guard.AssertSafeURL(ctx, rawURL)
			return err
		}
	}
	if c.Client == nil {
		c.Client = &http.Client{
			Timeout: c.Timeout,
			// Redirects are followed manually so each hop is
			// re-validated by CheckURL.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
}

// Fetcher retrieves playlist text. Fetch holds no mutable state, so a
// Fetcher may be shared or built per import.
type Fetcher struct {
	cfg Config
}

func New(cfg Config) *Fetcher {
	cfg.applyDefaults()
	return &Fetcher{cfg: cfg}
}

// Fetch downloads rawURL and returns the response body as text. The
// original request plus up to MaxRedirects hops are attempted; every
// hop's URL is validated before the request is issued.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	current := rawURL

	for attempt := 0; attempt <= f.cfg.MaxRedirects; attempt++ {
		if err := f.cfg.CheckURL(ctx, current); err != nil {
			return "", err
		}

		body, next, err := f.fetchOnce(ctx, current)
		if err != nil {
			return "", err
		}
		if next != "" {
			current = next
			continue
		}
		return body, nil
	}

	return "", fmt.Errorf("%w: gave up after %d hops", ErrTooManyRedirects, f.cfg.MaxRedirects)
}

// fetchOnce performs a single GET. It returns either a body (terminal
// 2xx) or the absolute URL of the next hop (3xx).
func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (body, next string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("NewRequest: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := f.cfg.Client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("Do: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		location := resp.Header.Get("Location")
		if location == "" {
			return "", "", fmt.Errorf("%w: HTTP %d from %s", ErrBadRedirect, resp.StatusCode, rawURL)
		}
		target, err := resolveLocation(rawURL, location)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrBadRedirect, err)
		}
		return "", target, nil

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		data, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBytes+1))
		if err != nil {
			return "", "", fmt.Errorf("read body: %w", err)
		}
		if int64(len(data)) > f.cfg.MaxBytes {
			return "", "", fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.cfg.MaxBytes)
		}
		if len(data) == 0 {
			return "", "", ErrEmptyResponse
		}
		return string(data), "", nil

	default:
		return "", "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}
}

// resolveLocation resolves a Location header (absolute or relative)
// against the URL that produced the redirect.
func resolveLocation(base, location string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	locURL, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(locURL).String(), nil
}
