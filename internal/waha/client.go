// Package waha is a client for the WAHA WhatsApp HTTP gateway.
package waha

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"waha-chatwoot/internal/metrics"
)

// Config holds WAHA client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client provides typed access to the WAHA server API.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
	meter  *metrics.Metrics
}

// New creates a new WAHA client.
func New(cfg Config, logger *slog.Logger, meter *metrics.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout)
	if cfg.APIKey != "" {
		http.SetHeader("X-Api-Key", cfg.APIKey)
	}
	return &Client{
		http:   http,
		logger: logger.With("component", "waha"),
		meter:  meter,
	}
}

// Session binds the client to one session name.
func (c *Client) Session(name string) *SessionAPI {
	return &SessionAPI{client: c, session: name}
}

func (c *Client) observe(endpoint string, started time.Time, resp *resty.Response, err error) {
	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode())
	}
	c.meter.WAHARequests.WithLabelValues(endpoint, status).Inc()
	c.meter.WAHALatency.WithLabelValues(endpoint, status).Observe(time.Since(started).Seconds())
}

// get runs a GET request and decodes the JSON response into result.
func (c *Client) get(ctx context.Context, endpoint, url string, result any) error {
	started := time.Now()
	req := c.http.R().SetContext(ctx)
	if result != nil {
		req.SetResult(result)
	}
	resp, err := req.Get(url)
	c.observe(endpoint, started, resp, err)
	if err != nil {
		return fmt.Errorf("waha %s: %w", endpoint, err)
	}
	if resp.IsError() {
		return fmt.Errorf("waha %s: status %s, body: %s", endpoint, resp.Status(), resp.String())
	}
	return nil
}

// post runs a POST request and decodes the JSON response into result.
func (c *Client) post(ctx context.Context, endpoint, url string, body, result any) error {
	started := time.Now()
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	resp, err := req.Post(url)
	c.observe(endpoint, started, resp, err)
	if err != nil {
		return fmt.Errorf("waha %s: %w", endpoint, err)
	}
	if resp.IsError() {
		return fmt.Errorf("waha %s: status %s, body: %s", endpoint, resp.Status(), resp.String())
	}
	return nil
}

func (c *Client) delete(ctx context.Context, endpoint, url string) error {
	started := time.Now()
	resp, err := c.http.R().SetContext(ctx).Delete(url)
	c.observe(endpoint, started, resp, err)
	if err != nil {
		return fmt.Errorf("waha %s: %w", endpoint, err)
	}
	if resp.IsError() {
		return fmt.Errorf("waha %s: status %s, body: %s", endpoint, resp.Status(), resp.String())
	}
	return nil
}

// ServerVersion returns the WAHA server version info.
func (c *Client) ServerVersion(ctx context.Context) (*ServerVersion, error) {
	var version ServerVersion
	if err := c.get(ctx, "server.version", "/api/server/version", &version); err != nil {
		return nil, err
	}
	return &version, nil
}

// ServerStatus returns the WAHA server status.
func (c *Client) ServerStatus(ctx context.Context) (*ServerStatus, error) {
	var status ServerStatus
	if err := c.get(ctx, "server.status", "/api/server/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ServerReboot restarts the WAHA server process.
func (c *Client) ServerReboot(ctx context.Context) error {
	return c.post(ctx, "server.reboot", "/api/server/reboot", nil, nil)
}

// FetchMedia downloads media content from a WAHA-served URL.
func (c *Client) FetchMedia(ctx context.Context, url string) ([]byte, error) {
	started := time.Now()
	resp, err := c.http.R().SetContext(ctx).SetDoNotParseResponse(false).Get(url)
	c.observe("media.fetch", started, resp, err)
	if err != nil {
		return nil, fmt.Errorf("waha fetch media: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("waha fetch media: status %s", resp.Status())
	}
	return resp.Body(), nil
}
