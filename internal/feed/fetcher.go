package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultFetchTimeout = 15 * time.Second
	maxFeedBytes        = 16 << 20
)

var (
	errMissingFeedURL = errors.New("feed url is required")
	errFeedTooLarge   = errors.New("feed document exceeds size limit")
)

// HTTPFetcherConfig configures the remote CSV fetcher.
type HTTPFetcherConfig struct {
	URL        string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// HTTPFetcher downloads the feed document, bypassing HTTP caches.
type HTTPFetcher struct {
	url        string
	httpClient *http.Client
}

// NewHTTPFetcher validates the configuration and builds a fetcher.
func NewHTTPFetcher(cfg HTTPFetcherConfig) (*HTTPFetcher, error) {
	feedURL := strings.TrimSpace(cfg.URL)
	if feedURL == "" {
		return nil, errMissingFeedURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultFetchTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &HTTPFetcher{url: feedURL, httpClient: httpClient}, nil
}

// Source returns the configured feed URL.
func (f *HTTPFetcher) Source() string {
	return f.url
}

// Fetch downloads the current feed document.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Accept", "text/csv")
	request.Header.Set("Cache-Control", "no-cache")
	request.Header.Set("Pragma", "no-cache")

	response, err := f.httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("feed request returned status %d", response.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxFeedBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxFeedBytes {
		return nil, errFeedTooLarge
	}
	return body, nil
}
