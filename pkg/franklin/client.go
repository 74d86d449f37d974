package franklin

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwhmon/fwhmon/pkg/common"
	"github.com/fwhmon/fwhmon/pkg/log"
)

// DefaultBaseURL is the vendor cloud the gateway reports to.
const DefaultBaseURL = "https://energy.franklinwh.com"

// Client talks to a single FranklinWH gateway through the vendor cloud API.
// It is safe for concurrent use; the session token and command sequence
// number are the only shared mutable state and both are guarded.
type Client struct {
	httpClient *http.Client
	baseURL    string
	fetcher    *TokenFetcher

	mu        sync.Mutex // guards token and gatewayID discovery
	token     string
	gatewayID string

	// snno is the per-client command sequence number. The wire format wants
	// it strictly increasing, so concurrent framing must never reuse one.
	snno atomic.Int64

	modeCache      cached[map[int]modeEntry]
	statusCache    cached[GatewayStatus]
	switchCache    cached[map[string]any]
	usageCache     cached[SwitchUsage]
	compositeCache cached[compositeInfo]
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API base, mainly for tests.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = base
	}
}

// WithHTTPClient replaces the underlying http client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New builds a client for the given gateway serial. An empty gatewayID is
// resolved on first use from the account's gateway list, which must then
// contain exactly one gateway.
func New(fetcher *TokenFetcher, gatewayID string, opts ...Option) *Client {
	c := &Client{
		httpClient: common.HTTPClient(time.Minute),
		baseURL:    DefaultBaseURL,
		fetcher:    fetcher,
		gatewayID:  gatewayID,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GatewayID returns the gateway serial the client is addressing. Empty until
// auto-discovery has run.
func (c *Client) GatewayID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gatewayID
}

// ensureToken returns the current session token, logging in lazily on first
// use. Expiry is detected reactively by the request layer, not tracked here.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}
	token, err := c.fetcher.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to login: %w", err)
	}
	c.token = token
	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

type homeGateway struct {
	ID       string `json:"id"`
	Status   int    `json:"status"`
	Name     string `json:"name"`
	Version  string `json:"version"`
	ZoneInfo string `json:"zoneInfo"`
}

// ensureGateway resolves the gateway serial if the client was constructed
// without one.
func (c *Client) ensureGateway(ctx context.Context) error {
	c.mu.Lock()
	known := c.gatewayID != ""
	c.mu.Unlock()
	if known {
		return nil
	}

	var list []homeGateway
	if err := c.get(ctx, pathGatewayList, nil, &list); err != nil {
		return fmt.Errorf("failed to list gateways: %w", err)
	}
	if len(list) != 1 {
		return fmt.Errorf("found %d gateways, expected 1", len(list))
	}

	c.mu.Lock()
	c.gatewayID = list[0].ID
	c.mu.Unlock()
	log.Ctx(ctx).InfoContext(ctx, "automatically selected gateway", slog.String("gatewayID", list[0].ID))
	return nil
}
