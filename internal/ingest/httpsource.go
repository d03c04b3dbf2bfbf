package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const maxFetchRetries = 3

// FetchError represents a non-2xx response from a remote upload source.
type FetchError struct {
	StatusCode int
	Body       string // first 512 bytes
	retryAfter string // Retry-After header value for 429s
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPTimeout sets the HTTP client timeout. Default: 30s.
func WithHTTPTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPSource) { s.client.Timeout = d }
}

// WithBearerToken sets a Bearer token sent with every fetch.
func WithBearerToken(token string) HTTPOption {
	return func(s *HTTPSource) { s.token = token }
}

// HTTPSource fetches uploads over HTTP; the locator is a URL (a presigned
// blob URL or an export endpoint). Retries on 429 (honoring Retry-After)
// and on 5xx with exponential backoff: 1s, 2s, 4s.
type HTTPSource struct {
	client *http.Client
	token  string
}

// NewHTTPSource creates an HTTPSource.
func NewHTTPSource(opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{client: &http.Client{Timeout: 30 * time.Second}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open fetches locator and returns the response body stream. The caller owns
// closing it.
func (s *HTTPSource) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	var lastErr *FetchError
	for attempt := 0; attempt <= maxFetchRetries; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(fetchBackoff(attempt, lastErr))
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
		if err != nil {
			return nil, fmt.Errorf("fetch source %s: %w", locator, err)
		}
		if s.token != "" {
			req.Header.Set("Authorization", "Bearer "+s.token)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch source %s: %w", locator, err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp.Body, nil
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		fetchErr := &FetchError{StatusCode: resp.StatusCode, Body: string(body)}

		if resp.StatusCode == http.StatusTooManyRequests {
			fetchErr.retryAfter = resp.Header.Get("Retry-After")
			lastErr = fetchErr
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = fetchErr
			continue
		}
		return nil, fetchErr
	}
	return nil, lastErr
}

// fetchBackoff returns the wait before a retry, honoring Retry-After on 429.
func fetchBackoff(attempt int, lastErr *FetchError) time.Duration {
	if lastErr != nil && lastErr.StatusCode == http.StatusTooManyRequests && lastErr.retryAfter != "" {
		if secs, err := strconv.Atoi(lastErr.retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Duration(1<<(attempt-1)) * time.Second
}
