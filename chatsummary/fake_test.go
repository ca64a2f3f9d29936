package chatsummary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

type fetchCall struct {
	channelID string
	after     string
	limit     int
}

// fakePlatform is an in-memory ChatPlatform.
type fakePlatform struct {
	channels    []*discordgo.Channel
	channelsErr error

	messages  map[string][]*discordgo.Message
	fetchErrs map[string]error
	fetches   []fetchCall

	sendErrOn   map[string]error // keyed by channel id
	threadErr   error
	sent        []sentMessage
	threads     []string
	nextMessage int
}

type sentMessage struct {
	channelID string
	content   string
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		messages:  make(map[string][]*discordgo.Message),
		fetchErrs: make(map[string]error),
		sendErrOn: make(map[string]error),
	}
}

func (f *fakePlatform) GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	return f.channels, f.channelsErr
}

func (f *fakePlatform) ChannelMessagesAfter(ctx context.Context, channelID, afterID string, limit int) ([]*discordgo.Message, error) {
	f.fetches = append(f.fetches, fetchCall{channelID, afterID, limit})
	if err := f.fetchErrs[channelID]; err != nil {
		return nil, err
	}
	return f.messages[channelID], nil
}

func (f *fakePlatform) SendMessage(ctx context.Context, channelID, content string) (*discordgo.Message, error) {
	if err := f.sendErrOn[channelID]; err != nil {
		return nil, err
	}
	f.nextMessage++
	f.sent = append(f.sent, sentMessage{channelID, content})
	return &discordgo.Message{ID: fmt.Sprintf("sent%d", f.nextMessage), ChannelID: channelID, Content: content}, nil
}

func (f *fakePlatform) StartThread(ctx context.Context, channelID, messageID, name string, autoArchiveMinutes int) (*discordgo.Channel, error) {
	if f.threadErr != nil {
		return nil, f.threadErr
	}
	id := "thread-" + channelID
	f.threads = append(f.threads, fmt.Sprintf("%s:%s:%s:%d", channelID, messageID, name, autoArchiveMinutes))
	return &discordgo.Channel{ID: id, Name: name, Type: discordgo.ChannelTypeGuildPublicThread}, nil
}

// userMessages builds n non-bot messages, newest first, with ids m<n>..m1.
func userMessages(n int) []*discordgo.Message {
	msgs := make([]*discordgo.Message, 0, n)
	for i := n; i >= 1; i-- {
		msgs = append(msgs, &discordgo.Message{
			ID:      fmt.Sprintf("m%d", i),
			Content: fmt.Sprintf("message %d", i),
			Author:  &discordgo.User{Username: "alice"},
		})
	}
	return msgs
}

type fakeProvider struct {
	summary     string
	err         error
	transcripts []string
}

func (p *fakeProvider) Name() string { return "FakeLLM" }

func (p *fakeProvider) Summarize(ctx context.Context, transcript string) (string, error) {
	p.transcripts = append(p.transcripts, transcript)
	if p.err != nil {
		return "", p.err
	}
	return p.summary, nil
}

var errBoom = errors.New("boom")

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
