package awwbot

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/brensch/awwbot/config"
	"github.com/brensch/awwbot/log"
)

var (
	bot      *Bot
	botMu    sync.Mutex
	logLevel = new(slog.LevelVar)
)

func init() {
	// Cloud Logging parses JSON lines on stdout.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("registering functions")
	functions.HTTP("interactions", handleInteractions)
	functions.HTTP("scheduled", handleScheduled)
}

// getBot wires the bot on first use, so a bad config fails requests with a
// logged error instead of crashing the instance at startup. A failed wiring
// is retried on the next request.
func getBot() (*Bot, error) {
	botMu.Lock()
	defer botMu.Unlock()
	if bot != nil {
		return bot, nil
	}

	cfg, err := config.Load(config.DefaultLocations)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateCloudFunction(); err != nil {
		return nil, err
	}
	if level, err := log.ParseLevel(cfg.Log.Level); err == nil {
		logLevel.Set(level)
	}

	b, err := New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	bot = b
	return bot, nil
}

func handleInteractions(w http.ResponseWriter, r *http.Request) {
	b, err := getBot()
	if err != nil {
		slog.Error("bot unavailable", "error", err)
		http.Error(w, "bot unavailable", http.StatusInternalServerError)
		return
	}
	b.Handler.ServeHTTP(w, r)
}

// handleScheduled is hit by Cloud Scheduler. Task failures are logged by the
// runner and still answered with 200, so the scheduler does not retry them.
func handleScheduled(w http.ResponseWriter, r *http.Request) {
	b, err := getBot()
	if err != nil {
		slog.Error("bot unavailable", "error", err)
		http.Error(w, "bot unavailable", http.StatusInternalServerError)
		return
	}
	if err := b.RunScheduled(r.Context()); err != nil {
		slog.Warn("scheduled run finished with errors", "error", err)
	}
	io.WriteString(w, "ok")
}
