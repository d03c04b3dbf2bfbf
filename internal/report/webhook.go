package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout = 10 * time.Second
	maxRetries     = 3
)

// WebhookOption configures a WebhookSink.
type WebhookOption func(*WebhookSink)

// WithHeaders sets custom HTTP headers sent with every POST.
func WithHeaders(h map[string]string) WebhookOption {
	return func(s *WebhookSink) { s.headers = h }
}

// WithTimeout sets the HTTP client timeout. Default: 10s.
func WithTimeout(d time.Duration) WebhookOption {
	return func(s *WebhookSink) { s.client.Timeout = d }
}

// WebhookSink POSTs each report to an HTTP endpoint as a JSON document.
// Retries on 5xx with exponential backoff; other failures return immediately.
type WebhookSink struct {
	client  *http.Client
	url     string
	headers map[string]string
}

// NewWebhook creates a webhook sink targeting the given URL.
func NewWebhook(url string, opts ...WebhookOption) *WebhookSink {
	s := &WebhookSink{
		client: &http.Client{Timeout: defaultTimeout},
		url:    url,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *WebhookSink) Deliver(ctx context.Context, r *Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("webhook report: marshal: %w", err)
	}
	return s.postWithRetry(ctx, body)
}

func (s *WebhookSink) Close() error { return nil }

func (s *WebhookSink) postWithRetry(ctx context.Context, body []byte) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(time.Duration(1<<(attempt-1)) * time.Second)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("webhook report: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range s.headers {
			req.Header.Set(k, v)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("webhook report: %w", err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("webhook report: HTTP %d", resp.StatusCode)

		// Only 5xx responses are worth retrying.
		if resp.StatusCode < 500 {
			return lastErr
		}
	}
	return lastErr
}
