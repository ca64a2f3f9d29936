package chatsummary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/brensch/awwbot/channelstate"
	"github.com/brensch/awwbot/discord"
)

// Job is one scheduled pass: load the channel list, discover new channels,
// summarize every channel and save the list back.
type Job struct {
	kv         channelstate.KV
	discoverer *Discoverer
	summarizer *Summarizer
}

func NewJob(kv channelstate.KV, discoverer *Discoverer, summarizer *Summarizer) *Job {
	return &Job{kv: kv, discoverer: discoverer, summarizer: summarizer}
}

// Run executes the job once. A failed discovery is logged and summarization
// still runs over the channels already tracked. The list is saved after
// discovery if it grew, and always once summarization is done.
func (j *Job) Run(ctx context.Context) error {
	store, err := channelstate.Load(ctx, j.kv)
	if err != nil {
		return err
	}

	var errs []error

	discovered, added, err := j.discoverer.Discover(ctx, store)
	if err != nil {
		slog.Error("failed to discover channels", "error", err)
		errs = append(errs, err)
	} else if added > 0 {
		if err := channelstate.Save(ctx, j.kv, discovered); err != nil {
			return errors.Join(append(errs, err)...)
		}
		store = discovered
	}

	updated, report := j.summarizer.SummarizeAll(ctx, store)
	if err := report.Err(); err != nil {
		errs = append(errs, err)
	}

	if err := channelstate.Save(ctx, j.kv, updated); err != nil {
		errs = append(errs, fmt.Errorf("failed to persist cursors: %w", err))
	}

	return errors.Join(errs...)
}

// DiscordSchedule returns the job as a scheduled task.
func (j *Job) DiscordSchedule(cronExpression string) discord.BotScheduleI {
	return discord.NewBotSchedule("channel_summary", cronExpression, j.Run)
}
