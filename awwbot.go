// Package awwbot wires the bot's components together from configuration and
// hosts them as Google Cloud Functions.
package awwbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/brensch/awwbot/channelstate"
	"github.com/brensch/awwbot/chatsummary"
	"github.com/brensch/awwbot/commands"
	"github.com/brensch/awwbot/config"
	"github.com/brensch/awwbot/db"
	"github.com/brensch/awwbot/discord"
	"github.com/brensch/awwbot/myduc"
	"github.com/brensch/awwbot/reddit"
	"github.com/brensch/awwbot/server"
	"github.com/brensch/awwbot/summarizer"
)

// Bot holds every wired component.
type Bot struct {
	Handler   http.Handler
	Schedules []discord.BotScheduleI

	closers []func() error
}

// New builds the bot from cfg. The channel summary schedule is left out, with
// a warning, when no guild or summarization key is configured; the MyDuc ping
// is left out when disabled. Storage is not opened here, so interactions are
// served even while it is unreachable.
func New(ctx context.Context, cfg *config.AppConfig) (*Bot, error) {
	client, err := discord.NewClient(cfg.Discord.BotToken)
	if err != nil {
		return nil, err
	}

	cute := reddit.NewClient(cfg.Reddit.URL, cfg.Reddit.UserAgent)
	interactions, err := discord.NewInteractionHandler(cfg.Discord.PublicKey, commands.All(cfg.Discord.AppID, cute))
	if err != nil {
		return nil, err
	}

	b := &Bot{
		Handler: server.New(cfg.Discord.AppID, interactions),
	}

	if summary, err := b.channelSummary(ctx, cfg, client); err != nil {
		b.Close()
		return nil, err
	} else if summary != nil {
		b.Schedules = append(b.Schedules, summary)
	}

	if cfg.MyDuc.Enabled {
		opts := []myduc.Option{myduc.WithSearch(cfg.MyDuc.Search)}
		if cfg.MyDuc.BaseURL != "" {
			opts = append(opts, myduc.WithBaseURL(cfg.MyDuc.BaseURL))
		}
		pinger := myduc.NewClient(cfg.MyDuc.Email, cfg.MyDuc.Password, opts...)
		b.Schedules = append(b.Schedules, pinger.DiscordSchedulePing(cfg.MyDuc.Cron))
	}

	names := make([]string, 0, len(b.Schedules))
	for _, s := range b.Schedules {
		names = append(names, s.GetName())
	}
	slog.Info("bot wired", "app_id", cfg.Discord.AppID, "schedules", names)
	return b, nil
}

func (b *Bot) channelSummary(ctx context.Context, cfg *config.AppConfig, client *discord.Client) (discord.BotScheduleI, error) {
	if cfg.Discord.GuildID == "" {
		slog.Warn("discord.guild_id not set, channel summaries disabled")
		return nil, nil
	}

	provider, err := NewProvider(ctx, cfg)
	if err != nil {
		slog.Warn("no summarization provider, channel summaries disabled", "error", err)
		return nil, nil
	}

	loc, err := time.LoadLocation(cfg.Summary.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid summary.time_zone: %w", err)
	}

	kv := &lazyKV{open: func(ctx context.Context) (channelstate.KV, func() error, error) {
		return NewKV(ctx, cfg)
	}}
	b.closers = append(b.closers, kv.Close)

	policy := chatsummary.Policy{
		MinMessages:       cfg.Summary.MinMessages,
		LookbackHint:      cfg.Summary.LookbackHint,
		FetchLimit:        cfg.Summary.FetchLimit,
		AbortOnFetchError: cfg.Summary.AbortOnFetchError,
	}
	publisher := chatsummary.NewPublisher(client, chatsummary.PublishConfig{
		ThreadName:         cfg.Summary.ThreadName,
		AutoArchiveMinutes: cfg.Summary.AutoArchiveMinutes,
		Location:           loc,
	})
	job := chatsummary.NewJob(kv,
		chatsummary.NewDiscoverer(client, cfg.Discord.GuildID),
		chatsummary.NewSummarizer(client, provider, publisher, policy))

	return job.DiscordSchedule(cfg.Summary.Cron), nil
}

// RunScheduled runs every schedule once, one after another.
func (b *Bot) RunScheduled(ctx context.Context) error {
	return discord.RunSchedules(ctx, b.Schedules)
}

// Close releases storage connections.
func (b *Bot) Close() error {
	var errs []error
	for _, c := range b.closers {
		errs = append(errs, c())
	}
	b.closers = nil
	return errors.Join(errs...)
}

// NewProvider builds the configured summarization provider.
func NewProvider(ctx context.Context, cfg *config.AppConfig) (summarizer.Provider, error) {
	switch cfg.Summary.Provider {
	case "gemini":
		return summarizer.NewGemini(ctx, summarizer.GeminiConfig{
			APIKey: cfg.Gemini.APIKey,
			Model:  cfg.Gemini.Model,
		})
	case "openai":
		return summarizer.NewOpenAI(summarizer.OpenAIConfig{
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
			BaseURL: cfg.OpenAI.BaseURL,
		})
	}
	return nil, fmt.Errorf("unknown summary provider %q", cfg.Summary.Provider)
}

// NewKV opens the configured channel list storage and returns it with its
// close function.
func NewKV(ctx context.Context, cfg *config.AppConfig) (channelstate.KV, func() error, error) {
	switch cfg.Database.Driver {
	case "postgres":
		kv, err := db.NewPostgresKV(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Stop, nil
	case "duckdb":
		client, err := db.NewClient(cfg.Database.Directory)
		if err != nil {
			return nil, nil, err
		}
		if err := client.Start(ctx); err != nil {
			client.Stop()
			return nil, nil, err
		}
		return client, client.Stop, nil
	}
	return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}

// lazyKV opens the channel list storage on first use. A failed open is
// returned to that caller and retried on the next one.
type lazyKV struct {
	open func(ctx context.Context) (channelstate.KV, func() error, error)

	mu    sync.Mutex
	kv    channelstate.KV
	close func() error
}

func (l *lazyKV) get(ctx context.Context) (channelstate.KV, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.kv != nil {
		return l.kv, nil
	}
	kv, closeKV, err := l.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open channel state storage: %w", err)
	}
	l.kv, l.close = kv, closeKV
	return kv, nil
}

func (l *lazyKV) Get(ctx context.Context, key string) ([]byte, error) {
	kv, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return kv.Get(ctx, key)
}

func (l *lazyKV) Put(ctx context.Context, key string, value []byte) error {
	kv, err := l.get(ctx)
	if err != nil {
		return err
	}
	return kv.Put(ctx, key, value)
}

// Close closes the storage if it was ever opened.
func (l *lazyKV) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.close == nil {
		return nil
	}
	err := l.close()
	l.kv, l.close = nil, nil
	return err
}
