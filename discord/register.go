package discord

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// ApplicationCommands builds the command definitions for functions.
func ApplicationCommands(functions []BotFunctionI) ([]*discordgo.ApplicationCommand, error) {
	commands := make([]*discordgo.ApplicationCommand, 0, len(functions))
	for _, fn := range functions {
		options, err := structToCommandOptions(fn.GetRequestPrototype())
		if err != nil {
			return nil, fmt.Errorf("failed to generate options for %s: %w", fn.GetName(), err)
		}
		commands = append(commands, &discordgo.ApplicationCommand{
			Name:        fn.GetName(),
			Description: fn.GetDescription(),
			Options:     options,
		})
	}
	return commands, nil
}

// RegisterCommands replaces the application's commands with functions. An
// empty guildID registers them globally.
func (c *Client) RegisterCommands(ctx context.Context, appID, guildID string, functions []BotFunctionI) ([]*discordgo.ApplicationCommand, error) {
	commands, err := ApplicationCommands(functions)
	if err != nil {
		return nil, err
	}

	for _, cmd := range commands {
		slog.Debug("registering command", "name", cmd.Name, "options", len(cmd.Options), "guild", guildID)
	}

	created, err := c.session.ApplicationCommandBulkOverwrite(appID, guildID, commands, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to overwrite application commands: %w", err)
	}
	return created, nil
}
