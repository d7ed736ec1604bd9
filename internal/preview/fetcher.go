// Package preview fetches email preview PDFs from the FOIA archive's
// object store.
package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrTooManyRedirects indicates too many HTTP redirects.
var ErrTooManyRedirects = errors.New("too many redirects")

// ErrNotPDF indicates the response body is not a PDF document.
var ErrNotPDF = errors.New("response is not a PDF")

// StatusError reports a non-200 upstream response. The status code is
// surfaced to the user verbatim.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP status not OK: %d", e.Code)
}

const (
	defaultFetchTimeoutSeconds = 30
	maxRedirects               = 5
	maxBodySizeMB              = 20
	maxBodySizeBytes           = maxBodySizeMB * 1024 * 1024
	globalLimiterBurst         = 5
	hostLimiterRate            = 2
	hostLimiterBurst           = 4
)

var pdfMagic = []byte("%PDF-")

// Fetcher downloads preview PDFs with global and per-host rate limits.
type Fetcher struct {
	client        *http.Client
	globalLimiter *rate.Limiter
	hostLimiters  map[string]*rate.Limiter
	mu            sync.RWMutex
	userAgent     string
}

// NewFetcher creates a fetcher limited to rps requests per second overall.
func NewFetcher(rps float64, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeoutSeconds * time.Second
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return ErrTooManyRedirects
				}

				return nil
			},
		},
		globalLimiter: rate.NewLimiter(rate.Limit(rps), globalLimiterBurst),
		hostLimiters:  make(map[string]*rate.Limiter),
		userAgent:     "FOIAExplorer/1.0 (COVID-19 Corpus)",
	}
}

// Fetch downloads the PDF at rawURL. A non-200 response returns a
// *StatusError carrying the upstream code; a body that is not a PDF
// returns ErrNotPDF.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.globalLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("global rate limiter wait: %w", err)
	}

	host := f.extractHost(rawURL)

	hostLimiter := f.getHostLimiter(host)
	if err := hostLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("host rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if !bytes.HasPrefix(body, pdfMagic) {
		return nil, ErrNotPDF
	}

	return body, nil
}

func (f *Fetcher) getHostLimiter(host string) *rate.Limiter {
	f.mu.RLock()
	limiter, exists := f.hostLimiters[host]
	f.mu.RUnlock()

	if exists {
		return limiter
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double check
	if limiter, exists := f.hostLimiters[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(hostLimiterRate, hostLimiterBurst)
	f.hostLimiters[host] = limiter

	return limiter
}

func (f *Fetcher) extractHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	return strings.ToLower(u.Host)
}
