// Package chatsummary polls tracked Discord channels, summarizes busy
// conversations and publishes each summary into a fresh thread.
package chatsummary

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brensch/awwbot/channelstate"
	"github.com/bwmarrin/discordgo"
)

// ChatPlatform is the part of the Discord REST API the job needs.
// *discord.Client implements it.
type ChatPlatform interface {
	GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error)
	ChannelMessagesAfter(ctx context.Context, channelID, afterID string, limit int) ([]*discordgo.Message, error)
	SendMessage(ctx context.Context, channelID, content string) (*discordgo.Message, error)
	StartThread(ctx context.Context, channelID, messageID, name string, autoArchiveMinutes int) (*discordgo.Channel, error)
}

// Discoverer adds newly created text channels of a guild to the store.
type Discoverer struct {
	platform ChatPlatform
	guildID  string
}

func NewDiscoverer(platform ChatPlatform, guildID string) *Discoverer {
	return &Discoverer{platform: platform, guildID: guildID}
}

// Discover returns a copy of s with every untracked text channel of the guild
// appended with an empty cursor, and the number appended. On error s is
// returned unchanged.
func (d *Discoverer) Discover(ctx context.Context, s channelstate.Store) (channelstate.Store, int, error) {
	channels, err := d.platform.GuildChannels(ctx, d.guildID)
	if err != nil {
		return s, 0, fmt.Errorf("channel discovery failed: %w", err)
	}

	out := s.Clone()
	added := 0
	for _, ch := range channels {
		if ch == nil || ch.Type != discordgo.ChannelTypeGuildText || out.Contains(ch.ID) {
			continue
		}
		rec := channelstate.ChannelRecord{
			ID:   ch.ID,
			Name: ch.Name,
			Type: int(ch.Type),
		}
		if err := out.Append(rec); err != nil {
			return s, 0, err
		}
		slog.Info("new channel detected", "channel_id", ch.ID, "name", ch.Name)
		added++
	}

	slog.Debug("channel discovery finished", "guild_id", d.guildID, "listed", len(channels), "added", added)
	return out, added, nil
}
