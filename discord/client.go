package discord

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Client issues bot-authenticated REST calls against the Discord API. It never
// opens a gateway connection, so it works inside a request-scoped function.
type Client struct {
	session *discordgo.Session
}

// ClientOption customises a Client.
type ClientOption func(*discordgo.Session)

// WithHTTPClient replaces the HTTP client used for every REST call.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(s *discordgo.Session) {
		s.Client = hc
	}
}

// NewClient creates a REST-only client for the given bot token.
func NewClient(botToken string, opts ...ClientOption) (*Client, error) {
	dg, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	// Failures surface to the caller; the next scheduled run is the retry.
	dg.ShouldRetryOnRateLimit = false
	dg.MaxRestRetries = 0
	dg.Client = &http.Client{Timeout: 20 * time.Second}

	for _, opt := range opts {
		opt(dg)
	}

	return &Client{session: dg}, nil
}

// Session exposes the underlying discordgo session.
func (c *Client) Session() *discordgo.Session {
	return c.session
}

// GuildChannels lists every channel in a guild.
func (c *Client) GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	channels, err := c.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list channels for guild %s: %w", guildID, err)
	}
	return channels, nil
}

// ChannelMessagesAfter returns up to limit messages newer than afterID,
// newest first. An empty afterID returns the latest page.
func (c *Client) ChannelMessagesAfter(ctx context.Context, channelID, afterID string, limit int) ([]*discordgo.Message, error) {
	messages, err := c.session.ChannelMessages(channelID, limit, "", afterID, "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages for channel %s: %w", channelID, err)
	}
	slog.Debug("fetched channel messages", "channel_id", channelID, "after", afterID, "count", len(messages))
	return messages, nil
}

// SendMessage posts plain content into a channel or thread.
func (c *Client) SendMessage(ctx context.Context, channelID, content string) (*discordgo.Message, error) {
	msg, err := c.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
	}
	return msg, nil
}

// StartThread opens a public thread rooted at messageID.
func (c *Client) StartThread(ctx context.Context, channelID, messageID, name string, autoArchiveMinutes int) (*discordgo.Channel, error) {
	thread, err := c.session.MessageThreadStartComplex(channelID, messageID, &discordgo.ThreadStart{
		Name:                name,
		AutoArchiveDuration: autoArchiveMinutes,
		Type:                discordgo.ChannelTypeGuildPublicThread,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to start thread on message %s: %w", messageID, err)
	}
	return thread, nil
}
