package chatsummary

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	_ "time/tzdata" // anchor timestamps need zone data on minimal images
	"unicode/utf8"

	"github.com/brensch/awwbot/channelstate"
)

// MaxMessageLength is Discord's limit on message content, in characters.
const MaxMessageLength = 2000

const (
	DefaultThreadName         = "Chat Summary"
	DefaultAutoArchiveMinutes = 60
	DefaultTimeZone           = "America/Los_Angeles"

	anchorTimeLayout = "01/02/2006, 03:04:05 PM"
)

// Step names one call of the publish sequence.
type Step string

const (
	StepAnchor Step = "anchor"
	StepThread Step = "thread"
	StepPost   Step = "post"
)

// PublishError reports which step of the publish sequence failed. Steps after
// it were not attempted.
type PublishError struct {
	Step Step
	Err  error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s step failed: %v", e.Step, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// PublishConfig configures a Publisher. Zero values take the defaults above.
type PublishConfig struct {
	ThreadName         string
	AutoArchiveMinutes int
	Location           *time.Location
}

// Publisher posts a summary with the anchor, thread, post sequence: a banner
// message in the channel, a thread rooted at it, and the summary inside the
// thread.
type Publisher struct {
	platform    ChatPlatform
	threadName  string
	autoArchive int
	loc         *time.Location
	now         func() time.Time
}

func NewPublisher(platform ChatPlatform, cfg PublishConfig) *Publisher {
	p := &Publisher{
		platform:    platform,
		threadName:  cfg.ThreadName,
		autoArchive: cfg.AutoArchiveMinutes,
		loc:         cfg.Location,
		now:         time.Now,
	}
	if p.threadName == "" {
		p.threadName = DefaultThreadName
	}
	if p.autoArchive == 0 {
		p.autoArchive = DefaultAutoArchiveMinutes
	}
	if p.loc == nil {
		loc, err := time.LoadLocation(DefaultTimeZone)
		if err != nil {
			slog.Warn("failed to load default time zone, using UTC", "zone", DefaultTimeZone, "error", err)
			loc = time.UTC
		}
		p.loc = loc
	}
	return p
}

// AnchorText is the banner posted in the channel to root the summary thread.
func AnchorText(channelName string, t time.Time) string {
	return fmt.Sprintf("📌 ***New Chat Summary***, channel **%s**, %s", channelName, t.Format(anchorTimeLayout))
}

// Publish runs the three steps for ch and returns the new thread's id. Each
// step only runs if the one before it succeeded.
func (p *Publisher) Publish(ctx context.Context, ch channelstate.ChannelRecord, content string) (string, error) {
	anchor, err := p.platform.SendMessage(ctx, ch.ID, AnchorText(ch.Name, p.now().In(p.loc)))
	if err != nil {
		return "", &PublishError{Step: StepAnchor, Err: err}
	}

	thread, err := p.platform.StartThread(ctx, ch.ID, anchor.ID, p.threadName, p.autoArchive)
	if err != nil {
		return "", &PublishError{Step: StepThread, Err: err}
	}

	if _, err := p.platform.SendMessage(ctx, thread.ID, truncate(content, MaxMessageLength)); err != nil {
		return "", &PublishError{Step: StepPost, Err: err}
	}

	slog.Info("published chat summary", "channel", ch.Name, "anchor_id", anchor.ID, "thread_id", thread.ID)
	return thread.ID, nil
}

// truncate shortens s to at most max characters, marking the cut with an
// ellipsis.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}
