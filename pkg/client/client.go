// Package client implements the HTTP access layer for TerraSync-style
// scenery servers: plain GETs with per-request timeouts, bounded retries
// and connection-state tracking.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/FGMEMBERS-SCENERY/terrafs/internal/logging"
	"github.com/FGMEMBERS-SCENERY/terrafs/pkg/retry"
	"github.com/FGMEMBERS-SCENERY/terrafs/version"
)

// DefaultServerURL is the public scenery server used when no server is
// configured.
const DefaultServerURL = "http://flightgear.sourceforge.net/scenery"

// DefaultTimeout bounds each HTTP request, connection setup included.
const DefaultTimeout = 30 * time.Second

var (
	// ErrNotFound means the server answered definitively and the
	// resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable means the server could not be reached or kept
	// failing; the resource may still exist.
	ErrUnavailable = errors.New("server unavailable")
)

// Config holds client configuration.
type Config struct {
	// BaseURL is the scenery server root. A trailing slash is trimmed.
	BaseURL string
	// Timeout bounds each HTTP request. Defaults to DefaultTimeout.
	Timeout time.Duration
	// Retry bounds re-attempts for failed GETs. Defaults to
	// retry.DefaultPolicy.
	Retry retry.Policy
	// UserAgent overrides the default terrafs User-Agent header.
	UserAgent string
}

// Client fetches manifests and file content from one scenery server. Safe
// for concurrent use.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	retry      retry.Policy

	mu     sync.RWMutex
	online bool
}

// New creates a client for cfg. No network traffic happens until the
// first Get.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultServerURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "terrafs/" + version.GetVersion()
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				DisableCompression:  false,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		retry:  cfg.Retry,
		online: true,
	}
}

// BaseURL returns the configured server root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// IsOnline reports whether the most recent request reached the server.
// Any HTTP response counts as reachable, including 404s; only transport
// failures flip the state.
func (c *Client) IsOnline() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.online
}

func (c *Client) setOnline(online bool) {
	c.mu.Lock()
	changed := c.online != online
	c.online = online
	c.mu.Unlock()
	if changed {
		if online {
			logging.L().Info("scenery server back online", zap.String("server", c.baseURL))
		} else {
			logging.L().Warn("scenery server unreachable", zap.String("server", c.baseURL))
		}
	}
}

// Get fetches urlPath relative to the server root and returns the whole
// body. Definitive non-success statuses map to ErrNotFound; transport
// failures, timeouts and 5xx responses are retried per the policy and map
// to ErrUnavailable once the budget is spent.
func (c *Client) Get(ctx context.Context, urlPath string) ([]byte, error) {
	url := c.baseURL + urlPath
	body, err := retry.DoWithResult(ctx, c.retry, func() ([]byte, error) {
		return c.get(ctx, url)
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.setOnline(false)
		return nil, retry.Transient(fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	defer resp.Body.Close()
	c.setOnline(true)

	if resp.StatusCode >= 500 {
		return nil, retry.Transient(fmt.Errorf("%w: %s", ErrUnavailable, resp.Status))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retry.Transient(fmt.Errorf("%w: read body: %v", ErrUnavailable, err))
	}
	return body, nil
}
