// Package commands defines the bot's slash commands.
package commands

import (
	"context"
	"log/slog"

	"github.com/brensch/awwbot/discord"
	"github.com/bwmarrin/discordgo"
)

// CuteSource supplies media links for the aww command.
type CuteSource interface {
	GetCuteURL(ctx context.Context) string
}

// AwwRequest has no options.
type AwwRequest struct{}

// InviteRequest has no options.
type InviteRequest struct{}

// Aww replies in the channel with a random cute picture or video.
func Aww(source CuteSource) discord.BotFunctionI {
	return discord.NewBotFunction("aww", "Drop some cuteness on this channel.",
		func(ctx context.Context, _ AwwRequest) (*discordgo.InteractionResponseData, error) {
			url := source.GetCuteURL(ctx)
			slog.Debug("aww command answered", "content", url)
			return &discordgo.InteractionResponseData{Content: url}, nil
		})
}

// InviteURL is the OAuth link that adds the application to a server.
func InviteURL(appID string) string {
	return "https://discord.com/oauth2/authorize?client_id=" + appID + "&scope=applications.commands"
}

// Invite replies to the caller only with the link to install the app.
func Invite(appID string) discord.BotFunctionI {
	return discord.NewBotFunction("invite", "Get an invite link to add the bot to your server",
		func(ctx context.Context, _ InviteRequest) (*discordgo.InteractionResponseData, error) {
			return &discordgo.InteractionResponseData{
				Content: InviteURL(appID),
				Flags:   discordgo.MessageFlagsEphemeral,
			}, nil
		})
}

// All returns every command the bot serves.
func All(appID string, source CuteSource) []discord.BotFunctionI {
	return []discord.BotFunctionI{
		Aww(source),
		Invite(appID),
	}
}
