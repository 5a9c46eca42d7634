package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the production registry host.
	DefaultBaseURL = "https://ismp.crpt.ru"

	// DefaultCreatePath is the "create document" operation.
	DefaultCreatePath = "/api/v3/lk/documents/create"

	defaultMaxResponseBytes = 1 << 20
)

// Response is what the registry returned for an accepted call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport performs the outbound call.
type Transport interface {
	Send(ctx context.Context, endpoint string, payload []byte) (*Response, error)
}

// StatusError is returned for non-2xx registry responses.
type StatusError struct {
	StatusCode int
	Body       []byte
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("registry responded %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	if snippet := strings.TrimSpace(string(e.Body)); snippet != "" {
		if len(snippet) > 200 {
			snippet = snippet[:200] + "..."
		}
		msg += ": " + snippet
	}
	return msg
}

// HTTPTransport posts JSON payloads to the registry.
type HTTPTransport struct {
	Client           *http.Client
	BaseURL          string
	UserAgent        string
	MaxResponseBytes int64
}

// Send posts payload to endpoint, resolved against BaseURL.
func (t *HTTPTransport) Send(ctx context.Context, endpoint string, payload []byte) (*Response, error) {
	if t == nil {
		return nil, errors.New("http transport is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	target, err := t.resolve(endpoint)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if t.UserAgent != "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}

	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	limit := t.MaxResponseBytes
	if limit <= 0 {
		limit = defaultMaxResponseBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read registry response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       body,
			RetryAfter: retryAfterHeader(resp),
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
	}, nil
}

func (t *HTTPTransport) resolve(endpoint string) (string, error) {
	base := strings.TrimSpace(t.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid registry base url: %w", err)
	}

	ref, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return "", fmt.Errorf("invalid registry endpoint: %w", err)
	}
	return baseURL.ResolveReference(ref).String(), nil
}
