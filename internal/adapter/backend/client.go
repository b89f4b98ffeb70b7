// Package backend is the HTTP client for the storm monitoring service. It
// classifies every failure into the domain failure taxonomy at this boundary.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/stormview/internal/domain"
	"github.com/couchcryptid/stormview/internal/observability"
)

const (
	maxJSONBody  = 8 << 20
	maxImageBody = 32 << 20
)

// Client talks to the storm backend. It implements the resolver's map source,
// the detail fetcher's source, and the image source.
type Client struct {
	baseURL    string
	rainURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a backend client rooted at baseURL (for example
// "http://localhost:8000/api"). The rain map is served from rainURL.
func NewClient(baseURL, rainURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if rainURL == "" {
		rainURL = baseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		rainURL: strings.TrimRight(rainURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// url joins escaped path segments onto the base URL.
func (c *Client) url(segments ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// getJSON issues a GET and decodes the body into v.
func (c *Client) getJSON(ctx context.Context, endpoint, u string, v any) ([]byte, error) {
	body, err := c.do(ctx, http.MethodGet, endpoint, u, maxJSONBody)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, v); err != nil {
		c.record(endpoint, domain.FailureMalformed)
		return nil, domain.NewFailure(domain.FailureMalformed, http.StatusOK,
			"malformed response from the storm service", fmt.Errorf("decode %s: %w", endpoint, err))
	}
	return body, nil
}

// do performs one request, classifying transport errors as network failures
// and non-success statuses as not-found failures. Failures are counted here;
// callers count success once the body has been validated.
func (c *Client) do(ctx context.Context, method, endpoint, u string, limit int64) ([]byte, error) {
	start := time.Now()
	defer func() {
		c.metrics.BackendDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(endpoint, domain.FailureNetwork)
		c.logger.Debug("backend request failed", "endpoint", endpoint, "url", u, "error", err)
		return nil, domain.NewFailure(domain.FailureNetwork, 0, "", fmt.Errorf("%s request: %w", endpoint, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		c.record(endpoint, domain.FailureNetwork)
		return nil, domain.NewFailure(domain.FailureNetwork, resp.StatusCode, "", fmt.Errorf("read %s body: %w", endpoint, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.record(endpoint, domain.FailureNotFound)
		c.logger.Debug("backend returned non-success", "endpoint", endpoint, "url", u, "status", resp.StatusCode)
		return nil, domain.NewFailure(domain.FailureNotFound, resp.StatusCode, serverReason(body),
			fmt.Errorf("%s: status %d", endpoint, resp.StatusCode))
	}

	return body, nil
}

func (c *Client) record(endpoint string, kind domain.FailureKind) {
	outcome := "success"
	if kind != "" {
		outcome = string(kind)
	}
	c.metrics.BackendRequests.WithLabelValues(endpoint, outcome).Inc()
}

// serverReason extracts the service's {"detail": "..."} message, if any.
func serverReason(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var msg string
	if err := json.Unmarshal(payload.Detail, &msg); err == nil {
		return strings.TrimSpace(msg)
	}
	// Validation errors carry a list of objects with a "msg" field.
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil && len(items) > 0 {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
