package chatsummary

import (
	"context"
	"errors"
	"testing"

	"github.com/brensch/awwbot/channelstate"
	"github.com/bwmarrin/discordgo"
)

func TestDiscoverAppendsNewTextChannels(t *testing.T) {
	p := newFakePlatform()
	p.channels = []*discordgo.Channel{
		{ID: "A", Name: "general", Type: discordgo.ChannelTypeGuildText},
		{ID: "V", Name: "voice", Type: discordgo.ChannelTypeGuildVoice},
		{ID: "C", Name: "random", Type: discordgo.ChannelTypeGuildText},
	}
	store := channelstate.New(
		channelstate.ChannelRecord{ID: "A", Name: "general", LastMessageID: "a9"},
		channelstate.ChannelRecord{ID: "B", Name: "old"},
	)

	got, added, err := NewDiscoverer(p, "g1").Discover(context.Background(), store)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if added != 1 {
		t.Fatalf("added = %d, want 1", added)
	}

	recs := got.Records()
	if len(recs) != 3 || recs[0].ID != "A" || recs[1].ID != "B" || recs[2].ID != "C" {
		t.Fatalf("records = %+v", recs)
	}
	if recs[0].LastMessageID != "a9" {
		t.Errorf("existing cursor changed: %q", recs[0].LastMessageID)
	}
	if recs[2].LastMessageID != "" || recs[2].Name != "random" || recs[2].Type != int(discordgo.ChannelTypeGuildText) {
		t.Errorf("new record = %+v", recs[2])
	}
	if store.Len() != 2 {
		t.Errorf("input store was modified: %d records", store.Len())
	}
}

func TestDiscoverNothingNew(t *testing.T) {
	p := newFakePlatform()
	p.channels = []*discordgo.Channel{
		{ID: "A", Type: discordgo.ChannelTypeGuildText},
		{ID: "V", Type: discordgo.ChannelTypeGuildVoice},
	}
	store := channelstate.New(channelstate.ChannelRecord{ID: "A"})

	got, added, err := NewDiscoverer(p, "g1").Discover(context.Background(), store)
	if err != nil || added != 0 || got.Len() != 1 {
		t.Fatalf("got %d records, added %d, err %v", got.Len(), added, err)
	}
}

func TestDiscoverFailureLeavesStore(t *testing.T) {
	p := newFakePlatform()
	p.channelsErr = errBoom
	store := channelstate.New(channelstate.ChannelRecord{ID: "A"})

	got, added, err := NewDiscoverer(p, "g1").Discover(context.Background(), store)
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v", err)
	}
	if added != 0 || got.Len() != 1 {
		t.Fatalf("got %d records, added %d", got.Len(), added)
	}
}
