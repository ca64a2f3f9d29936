package chatsummary

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/brensch/awwbot/channelstate"
)

func TestAnchorText(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skipf("time zone data unavailable: %v", err)
	}
	ts := time.Date(2025, 3, 14, 21, 4, 5, 0, time.UTC).In(loc)

	want := "📌 ***New Chat Summary***, channel **general**, 03/14/2025, 02:04:05 PM"
	if got := AnchorText("general", ts); got != want {
		t.Fatalf("AnchorText() = %q, want %q", got, want)
	}
}

func TestPublisherDefaultsToPacificTime(t *testing.T) {
	p := newFakePlatform()
	pub := NewPublisher(p, PublishConfig{})
	if pub.loc.String() != DefaultTimeZone {
		t.Fatalf("loc = %s, want %s", pub.loc, DefaultTimeZone)
	}
	pub.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	if _, err := pub.Publish(context.Background(), channelstate.ChannelRecord{ID: "c1", Name: "general"}, "s"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !strings.Contains(p.sent[0].content, "01/01/2025, 07:04:05 PM") {
		t.Errorf("anchor = %q, want Pacific time", p.sent[0].content)
	}
}

func newTestPublisher(p *fakePlatform) *Publisher {
	pub := NewPublisher(p, PublishConfig{Location: time.UTC})
	pub.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return pub
}

func TestPublishSequence(t *testing.T) {
	p := newFakePlatform()
	pub := newTestPublisher(p)

	threadID, err := pub.Publish(context.Background(), channelstate.ChannelRecord{ID: "c1", Name: "general"}, "the summary")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if threadID != "thread-c1" {
		t.Fatalf("threadID = %q", threadID)
	}
	if len(p.sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(p.sent))
	}
	if p.sent[0].channelID != "c1" || !containsAll(p.sent[0].content, "New Chat Summary", "**general**", "01/02/2025, 03:04:05 AM") {
		t.Errorf("anchor = %+v", p.sent[0])
	}
	if len(p.threads) != 1 || p.threads[0] != "c1:sent1:Chat Summary:60" {
		t.Errorf("threads = %v", p.threads)
	}
	if p.sent[1].channelID != "thread-c1" || p.sent[1].content != "the summary" {
		t.Errorf("post = %+v", p.sent[1])
	}
}

func TestPublishStopsAtFailedStep(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(p *fakePlatform)
		wantStep Step
		wantSent int
	}{
		{"anchor", func(p *fakePlatform) { p.sendErrOn["c1"] = errBoom }, StepAnchor, 0},
		{"thread", func(p *fakePlatform) { p.threadErr = errBoom }, StepThread, 1},
		{"post", func(p *fakePlatform) { p.sendErrOn["thread-c1"] = errBoom }, StepPost, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakePlatform()
			tt.setup(p)

			_, err := newTestPublisher(p).Publish(context.Background(), channelstate.ChannelRecord{ID: "c1", Name: "general"}, "s")
			var pubErr *PublishError
			if !errors.As(err, &pubErr) {
				t.Fatalf("err = %v, want *PublishError", err)
			}
			if pubErr.Step != tt.wantStep || !errors.Is(err, errBoom) {
				t.Fatalf("step = %s, err = %v", pubErr.Step, err)
			}
			if len(p.sent) != tt.wantSent {
				t.Fatalf("sent %d messages, want %d", len(p.sent), tt.wantSent)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	long := strings.Repeat("é", 2500)
	got := truncate(long, MaxMessageLength)
	if n := utf8.RuneCountInString(got); n != MaxMessageLength {
		t.Errorf("rune count = %d", n)
	}
	if !strings.HasSuffix(got, "…") {
		t.Error("missing ellipsis")
	}
}

func TestPostContentKeepsFooter(t *testing.T) {
	footer := "\n\n(*footer*)"
	got := postContent(strings.Repeat("x", 3000), footer)
	if utf8.RuneCountInString(got) != MaxMessageLength {
		t.Errorf("length = %d", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, footer) {
		t.Error("footer was cut")
	}
}
