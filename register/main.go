package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/brensch/awwbot/commands"
	"github.com/brensch/awwbot/config"
	"github.com/brensch/awwbot/discord"
	"github.com/brensch/awwbot/log"
	"github.com/brensch/awwbot/reddit"
)

// Replaces the application's slash commands with the ones the bot serves.
// Commands go to the configured guild unless -global is set.
func main() {
	global := flag.Bool("global", false, "register commands globally instead of for discord.guild_id")
	flag.Parse()

	slog.SetDefault(slog.New(log.NewPrettyHandler(os.Stdout, log.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: slog.LevelDebug},
	})))

	cfg := config.Get()

	guildID := cfg.Discord.GuildID
	if *global {
		guildID = ""
	}

	client, err := discord.NewClient(cfg.Discord.BotToken)
	if err != nil {
		slog.Error("failed to create discord client", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	functions := commands.All(cfg.Discord.AppID, reddit.NewClient(cfg.Reddit.URL, cfg.Reddit.UserAgent))
	created, err := client.RegisterCommands(ctx, cfg.Discord.AppID, guildID, functions)
	if err != nil {
		slog.Error("failed to register commands", "error", err)
		os.Exit(1)
	}

	for _, cmd := range created {
		slog.Info("registered command", "name", cmd.Name, "id", cmd.ID, "guild", guildID)
	}
}
