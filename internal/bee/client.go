package bee

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pingcap/errors"
	"go.uber.org/zap"
)

const maxBodyBytes = 8 << 20

// APIError is returned when the node answers with a non-2xx status.
type APIError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.StatusCode, body)
}

// Client talks to the Bee node API.
type Client struct {
	base   string
	client *http.Client
	logger *zap.Logger
}

// NewClient returns a client for the node at baseURL. A nil httpClient means
// http.DefaultClient semantics with the given timeout (0 disables it).
func NewClient(baseURL string, httpClient *http.Client, timeout time.Duration, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		client: httpClient,
		logger: logger,
	}
}

// Endpoint builds an absolute URL from escaped path segments.
func (c *Client) Endpoint(segments ...string) string {
	var b strings.Builder
	b.WriteString(c.base)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// RCHashURL is the endpoint RCHash calls for the given parameters.
func (c *Client) RCHashURL(depth int, anchor1, anchor2 string) string {
	return c.Endpoint("rchash", strconv.Itoa(depth), anchor1, anchor2)
}

// RCHash asks the node to compute the reserve commitment hash.
func (c *Client) RCHash(ctx context.Context, depth int, anchor1, anchor2 string) (*RCHashResponse, error) {
	var out RCHashResponse
	if err := c.getJSON(ctx, c.RCHashURL(depth, anchor1, anchor2), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Status(ctx context.Context) (*Status, error) {
	var out Status
	if err := c.getJSON(ctx, c.Endpoint("status"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RedistributionState(ctx context.Context) (*RedistributionState, error) {
	var out RedistributionState
	if err := c.getJSON(ctx, c.Endpoint("redistributionstate"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Neighborhoods(ctx context.Context) (NeighborhoodList, error) {
	var out NeighborhoodList
	if err := c.getJSON(ctx, c.Endpoint("status", "neighborhoods"), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, target string, out any) error {
	c.logger.Debug("sending request", zap.String("url", target))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return errors.Annotate(err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("request failed", zap.String("url", target), zap.Error(err))
		return errors.Annotatef(err, "GET %s", target)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.logger.Warn("failed to read response body", zap.String("url", target), zap.Error(err))
		return errors.Annotatef(err, "read body of %s", target)
	}

	c.logger.Debug("received response",
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("bytes", len(body)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{URL: target, StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Annotatef(err, "decode response of %s", target)
	}
	return nil
}
