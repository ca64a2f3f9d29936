// Package myduc keeps the MyDuc clinic API awake by issuing a cheap,
// optionally authenticated query against it.
package myduc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultBaseURL = "https://nhakhoamyduc-api.onrender.com"
	DefaultSearch  = "pingFromAwwBot"

	loginEndpoint   = "/api/login"
	clientsEndpoint = "/api/clients"
	sessionCookie   = "userId"
	userAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	maxBody = 1 << 20
)

// ErrNoSession is returned by Login when the response set no session cookie.
var ErrNoSession = errors.New("login succeeded but no userId cookie was set")

// StatusError reports a non-2xx response along with its body.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%d %s: response body is empty", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("%d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}

// Client talks to the MyDuc API. Credentials are optional: without them the
// query runs unauthenticated.
type Client struct {
	httpClient *http.Client
	baseURL    string
	email      string
	password   string
	search     string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API host.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithSearch changes the search term sent with the ping query.
func WithSearch(term string) Option {
	return func(c *Client) {
		c.search = term
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a MyDuc client. Empty email or password disables login.
func NewClient(email, password string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    DefaultBaseURL,
		email:      email,
		password:   password,
		search:     DefaultSearch,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CanLogin reports whether credentials are configured.
func (c *Client) CanLogin() bool {
	return c.email != "" && c.password != ""
}

func setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}

// Login authenticates and returns the session token carried by the userId cookie.
func (c *Client) Login(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"email":    c.email,
		"password": c.password,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode login body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create login request: %w", err)
	}
	setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("login failed: %w", readStatusError(resp))
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == sessionCookie && cookie.Value != "" {
			return cookie.Value, nil
		}
	}
	return "", ErrNoSession
}

// QueryClients runs the client search. token may be empty, in which case no
// Cookie header is sent. A nil result with a nil error means the search
// returned no data.
func (c *Client) QueryClients(ctx context.Context, token string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("search", c.search)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+clientsEndpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create query request: %w", err)
	}
	setHeaders(req)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, readStatusError(resp)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read query response: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("query response is not json: %.200s", data)
	}
	return json.RawMessage(data), nil
}

// Ping logs in when credentials are present, then queries the API and logs
// what came back. A failed login is logged and the query still runs without a
// session.
func (c *Client) Ping(ctx context.Context) error {
	slog.Info("pinging MyDuc API", "base_url", c.baseURL)

	var token string
	if c.CanLogin() {
		t, err := c.Login(ctx)
		if err != nil {
			slog.Warn("MyDuc login failed, continuing without a session", "error", err)
		} else {
			token = t
		}
	} else {
		slog.Warn("MyDuc credentials not configured, skipping login")
	}

	data, err := c.QueryClients(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to ping MyDuc API: %w", err)
	}

	switch {
	case data == nil:
		slog.Info("pinged MyDuc API: no data returned")
	case bytes.Equal(data, []byte("[]")):
		slog.Info("pinged MyDuc API: no results found (empty array)")
	default:
		slog.Info("got data from MyDuc API", "authenticated", token != "", "data", string(data))
	}
	return nil
}

func readStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
}
