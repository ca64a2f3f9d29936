package chatsummary

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// BuildTranscript renders messages, which Discord returns newest first, as
// "<name>: <content>" lines in chronological order. Bot messages are left
// out. The name is the author's global name, or the username when unset.
func BuildTranscript(messages []*discordgo.Message) string {
	lines := make([]string, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg == nil || msg.Author == nil || msg.Author.Bot {
			continue
		}
		lines = append(lines, displayName(msg.Author)+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}

func displayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
