package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brensch/awwbot"
	"github.com/brensch/awwbot/config"
	"github.com/brensch/awwbot/discord"
	"github.com/brensch/awwbot/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg := config.Get()

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		slog.Warn("falling back to info logging", "error", err)
	}
	var tz *time.Location
	if cfg.Log.TimeZone != "" {
		if tz, err = time.LoadLocation(cfg.Log.TimeZone); err != nil {
			slog.Warn("invalid log time zone, using local time", "error", err)
			tz = nil
		}
	}
	handler := log.NewPrettyHandler(os.Stdout, log.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: level},
		TimeZone: tz,
	})
	slog.SetDefault(slog.New(handler))

	slog.Info("awwbot starting", "addr", cfg.Server.Addr)

	bot, err := awwbot.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to wire bot", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := bot.Close(); err != nil {
			slog.Error("failed to close bot", "error", err)
		}
	}()

	schedules := discord.NewScheduleManager(bot.Schedules)
	if err := schedules.Start(); err != nil {
		slog.Error("failed to start schedules", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           bot.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			stop()
		}
	}()

	slog.Info("bot is now running")
	<-ctx.Done()

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("error during http shutdown", "error", err)
	}
	schedules.Stop()
}
