package commands

import (
	"context"
	"testing"

	"github.com/brensch/awwbot/discord"
	"github.com/bwmarrin/discordgo"
)

type staticSource string

func (s staticSource) GetCuteURL(context.Context) string { return string(s) }

func TestAww(t *testing.T) {
	fn := Aww(staticSource("https://i.redd.it/cat.jpg"))
	if fn.GetName() != "aww" {
		t.Fatalf("name = %q", fn.GetName())
	}
	data, err := fn.HandleInteraction(context.Background(), &discordgo.ApplicationCommandInteractionData{Name: "aww"})
	if err != nil {
		t.Fatalf("HandleInteraction: %v", err)
	}
	if data.Content != "https://i.redd.it/cat.jpg" || data.Flags != 0 {
		t.Fatalf("data = %+v", data)
	}
}

func TestInvite(t *testing.T) {
	data, err := Invite("123").HandleInteraction(context.Background(), nil)
	if err != nil {
		t.Fatalf("HandleInteraction: %v", err)
	}
	want := "https://discord.com/oauth2/authorize?client_id=123&scope=applications.commands"
	if data.Content != want {
		t.Fatalf("content = %q, want %q", data.Content, want)
	}
	if data.Flags != discordgo.MessageFlagsEphemeral {
		t.Fatalf("flags = %d, want ephemeral", data.Flags)
	}
}

func TestAllHaveNoOptions(t *testing.T) {
	cmds, err := discord.ApplicationCommands(All("123", staticSource("x")))
	if err != nil {
		t.Fatalf("ApplicationCommands: %v", err)
	}
	if len(cmds) != 2 || cmds[0].Name != "aww" || cmds[1].Name != "invite" {
		t.Fatalf("commands = %+v", cmds)
	}
	for _, c := range cmds {
		if len(c.Options) != 0 || c.Description == "" {
			t.Errorf("%s: options %d, description %q", c.Name, len(c.Options), c.Description)
		}
	}
}
