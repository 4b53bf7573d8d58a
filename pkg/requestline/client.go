package requestline

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config holds client configuration.
type Config struct {
	BaseURL    string       // Required: URL of the serve daemon
	AdminToken string       // Optional: bearer token for admin endpoints
	ClientID   string       // Optional: sent as X-Client-IP to identify the caller
	HTTPClient *http.Client // Optional: HTTP client (defaults to a client with a 30s timeout)
	Logger     Logger       // Optional: Logger interface for debug logging
}

// Logger is an optional interface for logging.
type Logger interface {
	// Debugf logs a debug message with format and arguments.
	Debugf(format string, args ...interface{})
}

// Client talks to a requestline serve daemon.
type Client struct {
	baseURL    *url.URL
	adminToken string
	clientID   string
	httpClient *http.Client
	logger     Logger
}

const (
	// APIPrefix is the path prefix of every API endpoint.
	APIPrefix = "/api/v1"

	// ClientIDHeader identifies the caller when set.
	ClientIDHeader = "X-Client-IP"
)

// NewClient creates a new API client.
//
// Returns ErrInvalidConfig if BaseURL is missing or malformed.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: BaseURL is required", ErrInvalidConfig)
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: bad BaseURL %q", ErrInvalidConfig, cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:    base,
		adminToken: cfg.AdminToken,
		clientID:   cfg.ClientID,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}, nil
}

// HasAdminToken reports whether admin calls will be authorized.
func (c *Client) HasAdminToken() bool {
	return c.adminToken != ""
}

// Submit requests a song.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*Submission, error) {
	var sub Submission
	if err := c.call(ctx, http.MethodPost, "/queue", nil, req, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Queue returns pending requests in playback order.
func (c *Client) Queue(ctx context.Context) ([]QueueItem, error) {
	var items []QueueItem
	if err := c.call(ctx, http.MethodGet, "/queue", nil, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Current returns what the shared device is playing.
func (c *Client) Current(ctx context.Context) (*Current, error) {
	var cur Current
	if err := c.call(ctx, http.MethodGet, "/current", nil, nil, &cur); err != nil {
		return nil, err
	}
	return &cur, nil
}

// Cooldown returns the caller's remaining cooldown.
func (c *Client) Cooldown(ctx context.Context) (*Cooldown, error) {
	var cd Cooldown
	if err := c.call(ctx, http.MethodGet, "/cooldown", nil, nil, &cd); err != nil {
		return nil, err
	}
	return &cd, nil
}

// Search finds tracks matching text. A zero limit uses the server default.
func (c *Client) Search(ctx context.Context, text string, limit int) ([]Track, error) {
	q := url.Values{}
	q.Set("q", text)
	q.Set("type", "track")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var tracks []Track
	if err := c.call(ctx, http.MethodGet, "/search", q, nil, &tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

// Skip force-skips the current track.
func (c *Client) Skip(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/admin/skip", nil, nil, nil)
}

// SetVolume sets the device volume in percent.
func (c *Client) SetVolume(ctx context.Context, percent int) error {
	return c.call(ctx, http.MethodPost, "/admin/volume", nil, VolumeRequest{Percent: percent}, nil)
}

// SetShuffle toggles shuffle on the device.
func (c *Client) SetShuffle(ctx context.Context, enabled bool) error {
	return c.call(ctx, http.MethodPost, "/admin/shuffle", nil, ShuffleRequest{Enabled: enabled}, nil)
}

// DeadLetters returns requests dropped after repeated playback failures.
func (c *Client) DeadLetters(ctx context.Context, limit int) ([]DeadLetter, error) {
	var q url.Values
	if limit > 0 {
		q = url.Values{"limit": {strconv.Itoa(limit)}}
	}

	var letters []DeadLetter
	if err := c.call(ctx, http.MethodGet, "/admin/dead-letters", q, nil, &letters); err != nil {
		return nil, err
	}
	return letters, nil
}

// Health checks that the daemon is up.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/healthz", nil, false), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &Error{Status: resp.StatusCode, Message: "health check failed"}
	}
	return nil
}

// endpoint builds an absolute URL for path. API paths get the /api/v1 prefix.
func (c *Client) endpoint(path string, query url.Values, api bool) string {
	u := *c.baseURL
	if api {
		u.Path = strings.TrimRight(u.Path, "/") + APIPrefix + path
	} else {
		u.Path = strings.TrimRight(u.Path, "/") + path
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// logDebugf logs a debug message if a logger is configured.
func (c *Client) logDebugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}
