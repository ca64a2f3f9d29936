// Package reddit picks a random cute post from a subreddit listing.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultURL is the listing the aww command draws from.
	DefaultURL = "https://www.reddit.com/r/aww/hot.json"
	// DefaultUserAgent identifies the bot to Reddit, which rejects blank agents.
	DefaultUserAgent = "DiscordBot:AI-summarized-Discord-bot:v1.0.0 (contact: admin)"

	// Apology is returned instead of a URL whenever nothing could be fetched.
	Apology = "Sorry, I couldn't fetch any cute content right now! 🐱 Please try again later."

	maxListingBody = 8 << 20
)

var (
	errNoPosts = errors.New("no valid posts found in reddit response")
	errShape   = errors.New("invalid response structure from reddit")
)

// listing is the subset of a Reddit listing response that is read.
type listing struct {
	Data *struct {
		Children []struct {
			Data post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type post struct {
	URL         string `json:"url"`
	IsGallery   bool   `json:"is_gallery"`
	Media       *media `json:"media"`
	SecureMedia *media `json:"secure_media"`
}

type media struct {
	RedditVideo *struct {
		FallbackURL string `json:"fallback_url"`
	} `json:"reddit_video"`
}

func (m *media) fallbackURL() string {
	if m == nil || m.RedditVideo == nil {
		return ""
	}
	return m.RedditVideo.FallbackURL
}

// candidateURL returns the best direct link for p, preferring hosted video
// over the post URL. Gallery posts have no single link and yield "".
func (p post) candidateURL() string {
	if p.IsGallery {
		return ""
	}
	for _, u := range []string{p.Media.fallbackURL(), p.SecureMedia.fallbackURL(), p.URL} {
		if u != "" {
			return u
		}
	}
	return ""
}

// Client fetches a listing and returns one of its media URLs.
type Client struct {
	httpClient *http.Client
	url        string
	userAgent  string
	pick       func(n int) int
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithPicker replaces the random index source; pick(n) must return a value in [0, n).
func WithPicker(pick func(n int) int) Option {
	return func(c *Client) {
		c.pick = pick
	}
}

// NewClient creates a client for the listing at url. Empty arguments fall
// back to DefaultURL and DefaultUserAgent.
func NewClient(url, userAgent string, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		url:        url,
		userAgent:  userAgent,
		pick:       rand.IntN,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetCuteURL returns a random media URL from the listing, or Apology if the
// listing could not be fetched or held nothing usable. It never fails.
func (c *Client) GetCuteURL(ctx context.Context) string {
	candidates, err := c.Candidates(ctx)
	if err != nil {
		slog.Error("failed to fetch cute content", "url", c.url, "error", err)
		return Apology
	}
	return candidates[c.pick(len(candidates))]
}

// Candidates returns every usable media URL in the listing, in listing order.
func (c *Client) Candidates(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create listing request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit returned %s", resp.Status)
	}

	var l listing
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxListingBody)).Decode(&l); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}
	if l.Data == nil {
		return nil, errShape
	}

	var candidates []string
	for _, child := range l.Data.Children {
		u := child.Data.candidateURL()
		if strings.HasPrefix(u, "http") {
			candidates = append(candidates, u)
		}
	}
	if len(candidates) == 0 {
		return nil, errNoPosts
	}

	slog.Debug("fetched cute candidates", "count", len(candidates))
	return candidates, nil
}
