package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/canalize/canalize/internal/safeurl"
)

// allowHostsOf returns a CheckURL that accepts URLs pointing at the
// given test servers and sends anything else through the real guard.
// httptest binds to 127.0.0.1, which the guard rightly rejects.
func allowHostsOf(servers ...*httptest.Server) func(context.Context, string) error {
	allowed := make(map[string]bool)
	for _, ts := range servers {
		u, _ := url.Parse(ts.URL)
		allowed[u.Host] = true
	}
	guard := &safeurl.Guard{}
	return func(ctx context.Context, rawURL string) error {
		u, err := url.Parse(rawURL)
		if err == nil && allowed[u.Host] {
			return nil
		}
		_, err = guard.AssertSafeURL(ctx, rawURL)
		return err
	}
}

func TestFetchReturnsBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "VLC/3.0.0-git" {
			t.Errorf("User-Agent = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "*/*" {
			t.Errorf("Accept = %q", got)
		}
		_, _ = w.Write([]byte("#EXTM3U\n"))
	}))
	defer ts.Close()

	f := New(Config{CheckURL: allowHostsOf(ts)})
	body, err := f.Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if body != "#EXTM3U\n" {
		t.Errorf("body = %q", body)
	}
}

func TestFetchFollowsRelativeRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	f := New(Config{CheckURL: allowHostsOf(ts)})
	body, err := f.Fetch(context.Background(), ts.URL+"/start")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if body != "ok" {
		t.Errorf("body = %q", body)
	}
}

func TestFetchRevalidatesEveryHop(t *testing.T) {
	// A public-looking origin that redirects to a private address. The
	// original URL passes validation; the hop must not.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "http://10.0.0.5/internal.m3u")
		w.WriteHeader(http.StatusMovedPermanently)
	}))
	defer ts.Close()

	f := New(Config{CheckURL: allowHostsOf(ts)})
	_, err := f.Fetch(context.Background(), ts.URL)
	if !errors.Is(err, safeurl.ErrForbiddenHost) {
		t.Fatalf("Fetch = %v, want ErrForbiddenHost for the redirect target", err)
	}
}

func TestFetchRedirectLimit(t *testing.T) {
	hops := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hops++
		http.Redirect(w, r, "/again", http.StatusFound)
	}))
	defer ts.Close()

	f := New(Config{MaxRedirects: 2, CheckURL: allowHostsOf(ts)})
	_, err := f.Fetch(context.Background(), ts.URL)
	if !errors.Is(err, ErrTooManyRedirects) {
		t.Fatalf("Fetch = %v, want ErrTooManyRedirects", err)
	}
	if hops != 3 { // original request + 2 redirect hops
		t.Errorf("hops = %d, want 3", hops)
	}
}

func TestFetchRedirectWithoutLocation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	}))
	defer ts.Close()

	f := New(Config{CheckURL: allowHostsOf(ts)})
	_, err := f.Fetch(context.Background(), ts.URL)
	if !errors.Is(err, ErrBadRedirect) {
		t.Fatalf("Fetch = %v, want ErrBadRedirect", err)
	}
}

func TestFetchEmptyBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	f := New(Config{CheckURL: allowHostsOf(ts)})
	_, err := f.Fetch(context.Background(), ts.URL)
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("Fetch = %v, want ErrEmptyResponse", err)
	}
}

func TestFetchByteCap(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer ts.Close()

	f := New(Config{MaxBytes: 10, CheckURL: allowHostsOf(ts)})
	_, err := f.Fetch(context.Background(), ts.URL)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Fetch = %v, want ErrTooLarge", err)
	}
}

func TestFetchErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer ts.Close()

	f := New(Config{CheckURL: allowHostsOf(ts)})
	_, err := f.Fetch(context.Background(), ts.URL)
	if err == nil || !strings.Contains(err.Error(), "HTTP 404") {
		t.Fatalf("Fetch = %v, want HTTP 404 error", err)
	}
}

func TestFetchRejectsUnsafeOriginalURL(t *testing.T) {
	// Default CheckURL wires the guard; no request is ever issued.
	f := New(Config{})
	_, err := f.Fetch(context.Background(), "http://127.0.0.1/playlist.m3u")
	if !errors.Is(err, safeurl.ErrForbiddenHost) {
		t.Fatalf("Fetch = %v, want ErrForbiddenHost", err)
	}
	_, err = f.Fetch(context.Background(), "ftp://example.com/playlist.m3u")
	if !errors.Is(err, safeurl.ErrInvalidURL) {
		t.Fatalf("Fetch = %v, want ErrInvalidURL", err)
	}
}
