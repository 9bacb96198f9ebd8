package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"hanzikit/core"
)

// Option configures the Client.
type Option func(*Client)

// Client provides typed access to the hanzikit HTTP + WebSocket API.
type Client struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
	headers    http.Header
}

// NewClient constructs a new SDK client targeting the given baseURL (e.g., http://localhost:8080/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		baseURL:    baseURL,
		wsURL:      deriveWSURL(baseURL),
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithAuthToken adds an Authorization: Bearer token header to all requests (HTTP + WS).
func WithAuthToken(token string) Option {
	return func(c *Client) {
		if strings.TrimSpace(token) != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithAPIKey adds an X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if strings.TrimSpace(key) != "" {
			c.headers.Set("X-API-Key", key)
		}
	}
}

// WithHeader sets an arbitrary header applied to HTTP and WS calls.
func WithHeader(k, v string) Option {
	return func(c *Client) {
		if k != "" {
			c.headers.Set(k, v)
		}
	}
}

// UpdateStatistic applies delta to a statistic. For set statistics delta is
// the element to add (e.g. an HSK level).
func (c *Client) UpdateStatistic(ctx context.Context, user core.UserID, key core.StatKey, delta float64) (UpdateResult, error) {
	var res UpdateResult
	if user <= 0 {
		return res, ErrInvalidUserID
	}
	q := url.Values{"delta": {strconv.FormatFloat(delta, 'f', -1, 64)}}
	err := c.do(ctx, http.MethodPost, c.userPath(user, "stats", url.PathEscape(string(key))), q, &res)
	return res, err
}

// CheckAchievements asks the server to unlock whatever the stored statistics satisfy.
func (c *Client) CheckAchievements(ctx context.Context, user core.UserID) (UpdateResult, error) {
	var res UpdateResult
	if user <= 0 {
		return res, ErrInvalidUserID
	}
	err := c.do(ctx, http.MethodPost, c.userPath(user, "check"), nil, &res)
	return res, err
}

// GetUser fetches the progress record for a user.
func (c *Client) GetUser(ctx context.Context, user core.UserID) (core.Record, error) {
	var rec core.Record
	if user <= 0 {
		return rec, ErrInvalidUserID
	}
	err := c.do(ctx, http.MethodGet, c.userPath(user), nil, &rec)
	return rec, err
}

// Level fetches the user's current rank.
func (c *Client) Level(ctx context.Context, user core.UserID) (core.Level, error) {
	var lvl core.Level
	if user <= 0 {
		return lvl, ErrInvalidUserID
	}
	err := c.do(ctx, http.MethodGet, c.userPath(user, "level"), nil, &lvl)
	return lvl, err
}

// Unlocked lists the user's unlocked achievements.
func (c *Client) Unlocked(ctx context.Context, user core.UserID) ([]core.AchievementDefinition, error) {
	var defs []core.AchievementDefinition
	if user <= 0 {
		return nil, ErrInvalidUserID
	}
	err := c.do(ctx, http.MethodGet, c.userPath(user, "achievements"), nil, &defs)
	return defs, err
}

// Locked lists the user's locked achievements, closest first.
func (c *Client) Locked(ctx context.Context, user core.UserID) ([]core.LockedAchievement, error) {
	var locked []core.LockedAchievement
	if user <= 0 {
		return nil, ErrInvalidUserID
	}
	err := c.do(ctx, http.MethodGet, c.userPath(user, "achievements", "locked"), nil, &locked)
	return locked, err
}

// Summary, Screen and Details fetch the rendered text views.
func (c *Client) Summary(ctx context.Context, user core.UserID) (string, error) {
	return c.text(ctx, user, "summary")
}

func (c *Client) Screen(ctx context.Context, user core.UserID) (string, error) {
	return c.text(ctx, user, "screen")
}

func (c *Client) Details(ctx context.Context, user core.UserID) (string, error) {
	return c.text(ctx, user, "details")
}

// Catalog lists every achievement definition.
func (c *Client) Catalog(ctx context.Context) ([]core.AchievementDefinition, error) {
	var defs []core.AchievementDefinition
	err := c.do(ctx, http.MethodGet, "/achievements", nil, &defs)
	return defs, err
}

// Leaderboard fetches the top n users. n <= 0 uses the server default.
func (c *Client) Leaderboard(ctx context.Context, n int) ([]LeaderboardEntry, error) {
	var q url.Values
	if n > 0 {
		q = url.Values{"limit": {strconv.Itoa(n)}}
	}
	var entries []LeaderboardEntry
	err := c.do(ctx, http.MethodGet, "/leaderboard", q, &entries)
	return entries, err
}

// Health probes /healthz and returns status + storage check. An unhealthy
// server reports its status alongside an *APIError.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var hs HealthStatus
	err := c.do(ctx, http.MethodGet, "/healthz", nil, &hs)
	return hs, err
}

// SubscribeEvents connects to the WebSocket stream and emits core.Event values.
// A positive user restricts the stream to that user's events.
// The returned channel closes when ctx is done or the connection drops.
func (c *Client) SubscribeEvents(ctx context.Context, user core.UserID) (<-chan core.Event, error) {
	if c.wsURL == "" {
		return nil, errors.New("wsURL is not set; ensure baseURL is http/https")
	}
	target := c.wsURL
	if user > 0 {
		target += "?user=" + user.String()
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, target, c.headers)
	if err != nil {
		return nil, err
	}

	out := make(chan core.Event, 32)
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			var evt core.Event
			if err := conn.ReadJSON(&evt); err != nil {
				return
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			default:
				// drop if consumer is slow
			}
		}
	}()
	return out, nil
}

func (c *Client) text(ctx context.Context, user core.UserID, view string) (string, error) {
	if user <= 0 {
		return "", ErrInvalidUserID
	}
	req, err := c.newRequest(ctx, http.MethodGet, c.userPath(user, view), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return "", decodeJSON(resp, nil)
	}
	b, err := io.ReadAll(resp.Body)
	return string(b), err
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, target any) error {
	req, err := c.newRequest(ctx, method, path, q)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		// health reports its body even when unhealthy
		body, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(body, apiErr)
		_ = json.Unmarshal(body, target)
		return apiErr
	}
	return decodeJSON(resp, target)
}

func (c *Client) newRequest(ctx context.Context, method, path string, q url.Values) (*http.Request, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.applyHeaders(req)
	return req, nil
}

func (c *Client) userPath(user core.UserID, parts ...string) string {
	return "/users/" + user.String() + strings.Join(append([]string{""}, parts...), "/")
}

func (c *Client) applyHeaders(r *http.Request) {
	for k, vals := range c.headers {
		for _, v := range vals {
			r.Header.Add(k, v)
		}
	}
}

func deriveWSURL(httpBase string) string {
	u, err := url.Parse(httpBase)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		// leave as-is for custom schemes
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}
