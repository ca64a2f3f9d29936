package myduc

import (
	"github.com/brensch/awwbot/discord"
)

// DiscordSchedulePing returns a scheduled task that pings the API.
func (c *Client) DiscordSchedulePing(cronExpression string) discord.BotScheduleI {
	return discord.NewBotSchedule("myduc_ping", cronExpression, c.Ping)
}
