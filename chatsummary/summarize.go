package chatsummary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/brensch/awwbot/channelstate"
	"github.com/brensch/awwbot/summarizer"
)

// historyStart is the cursor sent for a channel that was never polled, so the
// first fetch starts at the beginning of its history.
const historyStart = "0"

// Policy decides when a channel is worth summarizing.
type Policy struct {
	// MinMessages is the number of new messages that triggers a summary.
	MinMessages int
	// LookbackHint is the polling period, quoted in the summary footer.
	LookbackHint time.Duration
	// FetchLimit is the page size asked of Discord (1-100).
	FetchLimit int
	// AbortOnFetchError stops the whole run at the first channel whose
	// messages cannot be fetched.
	AbortOnFetchError bool
}

func DefaultPolicy() Policy {
	return Policy{
		MinMessages:       8,
		LookbackHint:      time.Hour,
		FetchLimit:        50,
		AbortOnFetchError: true,
	}
}

// Outcome is what happened to one channel in a run.
type Outcome int

const (
	NoMessages Outcome = iota
	BelowThreshold
	EmptyTranscript
	Summarized
	FetchFailed
	SummaryFailed
	PublishFailed
)

func (o Outcome) String() string {
	switch o {
	case NoMessages:
		return "no_messages"
	case BelowThreshold:
		return "below_threshold"
	case EmptyTranscript:
		return "empty_transcript"
	case Summarized:
		return "summarized"
	case FetchFailed:
		return "fetch_failed"
	case SummaryFailed:
		return "summary_failed"
	case PublishFailed:
		return "publish_failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// AdvancesCursor reports whether the channel's cursor moves to the newest
// fetched message. Failed summaries and publishes keep the old cursor so the
// same messages are picked up again on the next run.
func (o Outcome) AdvancesCursor() bool {
	switch o {
	case BelowThreshold, EmptyTranscript, Summarized:
		return true
	}
	return false
}

// ChannelResult is the outcome of processing one channel.
type ChannelResult struct {
	ChannelID string
	Name      string
	Outcome   Outcome
	Fetched   int
	// Cursor is the id of the newest fetched message, if any.
	Cursor   string
	ThreadID string
	Err      error
}

// Report collects the per-channel results of a run. Aborted is set when a
// fetch failure stopped the run before every channel was visited.
type Report struct {
	Results []ChannelResult
	Aborted bool
}

// Count returns how many channels ended with o.
func (r Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Err returns the error that aborted the run, or nil.
func (r Report) Err() error {
	if !r.Aborted || len(r.Results) == 0 {
		return nil
	}
	last := r.Results[len(r.Results)-1]
	return fmt.Errorf("summarization aborted at channel %s: %w", last.Name, last.Err)
}

// Summarizer walks the tracked channels one at a time and summarizes those
// with enough new messages.
type Summarizer struct {
	platform  ChatPlatform
	provider  summarizer.Provider
	publisher *Publisher
	policy    Policy
}

func NewSummarizer(platform ChatPlatform, provider summarizer.Provider, publisher *Publisher, policy Policy) *Summarizer {
	return &Summarizer{
		platform:  platform,
		provider:  provider,
		publisher: publisher,
		policy:    policy,
	}
}

// SummarizeAll processes every channel of s in store order and returns the
// updated store with the run's report. s itself is not modified.
func (s *Summarizer) SummarizeAll(ctx context.Context, store channelstate.Store) (channelstate.Store, Report) {
	out := store.Clone()
	var report Report

	for _, rec := range store.Records() {
		if err := ctx.Err(); err != nil {
			report.Results = append(report.Results, ChannelResult{
				ChannelID: rec.ID, Name: rec.Name, Outcome: FetchFailed, Err: err,
			})
			report.Aborted = true
			break
		}

		res := s.summarizeChannel(ctx, rec)
		report.Results = append(report.Results, res)
		if !s.fold(&out, res) {
			report.Aborted = true
			break
		}
	}

	slog.Info("summarization run finished",
		"channels", store.Len(),
		"visited", len(report.Results),
		"summarized", report.Count(Summarized),
		"aborted", report.Aborted)
	return out, report
}

// fold applies res to the store and reports whether the run should go on.
func (s *Summarizer) fold(store *channelstate.Store, res ChannelResult) bool {
	if res.Outcome.AdvancesCursor() && res.Cursor != "" {
		store.SetCursor(res.ChannelID, res.Cursor)
	}
	return !(res.Outcome == FetchFailed && s.policy.AbortOnFetchError)
}

func (s *Summarizer) summarizeChannel(ctx context.Context, rec channelstate.ChannelRecord) ChannelResult {
	res := ChannelResult{ChannelID: rec.ID, Name: rec.Name}
	logger := slog.With("channel", rec.Name, "channel_id", rec.ID)

	after := rec.LastMessageID
	if after == "" {
		after = historyStart
	}
	messages, err := s.platform.ChannelMessagesAfter(ctx, rec.ID, after, s.policy.FetchLimit)
	if err != nil {
		logger.Error("failed to fetch channel messages", "error", err)
		res.Outcome, res.Err = FetchFailed, err
		return res
	}

	res.Fetched = len(messages)
	if len(messages) == 0 {
		res.Outcome = NoMessages
		return res
	}
	res.Cursor = messages[0].ID

	if len(messages) < s.policy.MinMessages {
		logger.Debug("not enough new messages to summarize", "fetched", len(messages), "min", s.policy.MinMessages)
		res.Outcome = BelowThreshold
		return res
	}

	transcript := BuildTranscript(messages)
	if transcript == "" {
		logger.Info("only bot messages since last run, nothing to summarize", "fetched", len(messages))
		res.Outcome = EmptyTranscript
		return res
	}

	logger.Info("summarizing channel", "fetched", len(messages), "provider", s.provider.Name())
	summary, err := s.provider.Summarize(ctx, transcript)
	if err != nil {
		logger.Error("failed to summarize chat", "error", err)
		res.Outcome, res.Err = SummaryFailed, err
		return res
	}

	threadID, err := s.publisher.Publish(ctx, rec, postContent(summary, s.footer()))
	if err != nil {
		step := Step("")
		var pubErr *PublishError
		if errors.As(err, &pubErr) {
			step = pubErr.Step
		}
		logger.Error("failed to publish chat summary", "step", step, "error", err)
		res.Outcome, res.Err = PublishFailed, err
		return res
	}

	res.Outcome, res.ThreadID = Summarized, threadID
	return res
}

// footer is the attribution appended to every summary.
func (s *Summarizer) footer() string {
	return fmt.Sprintf("\n\n(*An automated summary for a conversation with at least %d new messages within the last %s, using %s.*)",
		s.policy.MinMessages, humanDuration(s.policy.LookbackHint), s.provider.Name())
}

// postContent joins summary and footer, trimming the summary so the footer
// always fits within MaxMessageLength.
func postContent(summary, footer string) string {
	room := MaxMessageLength - utf8.RuneCountInString(footer)
	if room < 1 {
		return truncate(summary, MaxMessageLength)
	}
	return truncate(summary, room) + footer
}

func humanDuration(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "hour"
	case d > 0 && d%time.Hour == 0:
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d > 0 && d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	}
	return d.String()
}
