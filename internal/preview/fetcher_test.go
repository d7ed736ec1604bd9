package preview

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const headerUserAgent = "User-Agent"

var testPDFBody = []byte("%PDF-1.7 fake preview page")

func TestNewFetcher(t *testing.T) {
	tests := []struct {
		name    string
		rps     float64
		timeout time.Duration
	}{
		{
			name:    "default timeout",
			rps:     2.0,
			timeout: 0,
		},
		{
			name:    "custom timeout",
			rps:     5.0,
			timeout: 10 * time.Second,
		},
		{
			name:    "negative timeout uses default",
			rps:     1.0,
			timeout: -1 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := NewFetcher(tt.rps, tt.timeout)

			require.NotNil(t, fetcher, "NewFetcher() returned nil")
			require.NotNil(t, fetcher.client, "client is nil")
			require.NotNil(t, fetcher.globalLimiter, "globalLimiter is nil")
			require.NotNil(t, fetcher.hostLimiters, "hostLimiters is nil")
			require.NotEmpty(t, fetcher.userAgent, "userAgent is empty")
		})
	}
}

func TestFetcherFetch(t *testing.T) {
	t.Run("successful fetch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(headerUserAgent) == "" {
				t.Error("User-Agent header not set")
			}

			if r.Header.Get("Accept") != "application/pdf" {
				t.Errorf("Accept = %q, want application/pdf", r.Header.Get("Accept"))
			}

			w.WriteHeader(http.StatusOK)

			if _, err := w.Write(testPDFBody); err != nil {
				t.Errorf("write response body: %v", err)
			}
		}))
		defer server.Close()

		fetcher := NewFetcher(10, 5*time.Second)

		body, err := fetcher.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}

		if string(body) != string(testPDFBody) {
			t.Errorf("Fetch() body = %q, want %q", string(body), string(testPDFBody))
		}
	})

	t.Run("non-200 status carries the code", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		fetcher := NewFetcher(10, 5*time.Second)

		_, err := fetcher.Fetch(context.Background(), server.URL)

		var statusErr *StatusError

		require.ErrorAs(t, err, &statusErr)
		require.Equal(t, http.StatusForbidden, statusErr.Code)
	})

	t.Run("non-pdf body rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("<html>not a pdf</html>"))
		}))
		defer server.Close()

		fetcher := NewFetcher(10, 5*time.Second)

		_, err := fetcher.Fetch(context.Background(), server.URL)
		if !errors.Is(err, ErrNotPDF) {
			t.Errorf("Fetch() error = %v, want ErrNotPDF", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(100 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		fetcher := NewFetcher(10, 5*time.Second)
		ctx, cancel := context.WithCancel(context.Background())
		cancel() // Cancel immediately

		_, err := fetcher.Fetch(ctx, server.URL)
		if err == nil {
			t.Error("Fetch() expected error for canceled context")
		}
	})

	t.Run("invalid URL", func(t *testing.T) {
		fetcher := NewFetcher(10, 5*time.Second)

		_, err := fetcher.Fetch(context.Background(), "://invalid-url")
		if err == nil {
			t.Error("Fetch() expected error for invalid URL")
		}
	})
}

func TestFetcherRedirectLimit(t *testing.T) {
	redirectCount := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		redirectCount++
		if redirectCount <= 10 {
			http.Redirect(w, r, "/redirect", http.StatusFound)
			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	fetcher := NewFetcher(10, 5*time.Second)
	_, err := fetcher.Fetch(context.Background(), server.URL)

	if err == nil {
		t.Error("Fetch() expected error for too many redirects")
	}
}

func TestFetcherGetHostLimiter(t *testing.T) {
	fetcher := NewFetcher(1, time.Second)

	limiter1 := fetcher.getHostLimiter("archive.org")
	if limiter1 == nil {
		t.Fatal("getHostLimiter() returned nil")
	}

	limiter2 := fetcher.getHostLimiter("archive.org")
	if limiter1 != limiter2 {
		t.Error("getHostLimiter() should return same limiter for same host")
	}

	limiter3 := fetcher.getHostLimiter("other.org")
	if limiter1 == limiter3 {
		t.Error("getHostLimiter() should return different limiter for different host")
	}
}
