package awwbot

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/brensch/awwbot/channelstate"
	"github.com/brensch/awwbot/config"
	"github.com/brensch/awwbot/discord"
)

// Nothing listens on port 1, so connecting fails straight away.
const unreachableDSN = "postgres://u:p@127.0.0.1:1/awwbot?connect_timeout=2"

func testConfig(t *testing.T) *config.AppConfig {
	cfg, _ := testConfigWithKey(t)
	return cfg
}

func testConfigWithKey(t *testing.T) (*config.AppConfig, ed25519.PrivateKey) {
	t.Helper()
	t.Chdir(t.TempDir())
	cfg, err := config.Read(nil)
	if err != nil {
		t.Fatalf("config.Read: %v", err)
	}
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	cfg.Discord.AppID = "app1"
	cfg.Discord.BotToken = "token"
	cfg.Discord.PublicKey = hex.EncodeToString(pub)
	cfg.Database.Directory = t.TempDir()
	return cfg, priv
}

func signedPing(priv ed25519.PrivateKey) *http.Request {
	const timestamp = "1700000000"
	body := `{"type":1}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("X-Signature-Timestamp", timestamp)
	req.Header.Set("X-Signature-Ed25519", hex.EncodeToString(ed25519.Sign(priv, []byte(timestamp+body))))
	return req
}

func scheduleNames(s []discord.BotScheduleI) []string {
	var names []string
	for _, sched := range s {
		names = append(names, sched.GetName())
	}
	return names
}

func TestNewWiresEverything(t *testing.T) {
	cfg := testConfig(t)
	cfg.Discord.GuildID = "g1"
	cfg.OpenAI.APIKey = "sk-test"

	b, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer b.Close()

	names := scheduleNames(b.Schedules)
	if len(names) != 2 || names[0] != "channel_summary" || names[1] != "myduc_ping" {
		t.Fatalf("schedules = %v", names)
	}

	rec := httptest.NewRecorder()
	b.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "👋 app1" {
		t.Fatalf("GET / = %d %q", rec.Code, rec.Body.String())
	}
}

func TestNewDegradesWithoutOptionalSettings(t *testing.T) {
	cfg := testConfig(t)
	cfg.MyDuc.Enabled = false

	b, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer b.Close()
	if len(b.Schedules) != 0 {
		t.Fatalf("schedules = %v, want none without guild or myduc", scheduleNames(b.Schedules))
	}

	cfg.Discord.GuildID = "g1"
	b2, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer b2.Close()
	if len(b2.Schedules) != 0 {
		t.Fatalf("schedules = %v, want none without an api key", scheduleNames(b2.Schedules))
	}
}

func TestNewRejectsBadPublicKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Discord.PublicKey = "not-hex"
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("expected an error for a bad public key")
	}
}

func TestNewProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.Summary.Provider = "gemini"
	cfg.Gemini.APIKey = "g-key"
	p, err := NewProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Name() != "Gemini" {
		t.Fatalf("provider = %s", p.Name())
	}

	cfg.Summary.Provider = "claude"
	if _, err := NewProvider(context.Background(), cfg); err == nil {
		t.Fatal("unknown provider accepted")
	}
}

func TestNewServesInteractionsWhileStorageIsDown(t *testing.T) {
	cfg, priv := testConfigWithKey(t)
	cfg.Discord.GuildID = "g1"
	cfg.OpenAI.APIKey = "sk-test"
	cfg.MyDuc.Enabled = false
	cfg.Database.Driver = "postgres"
	cfg.Database.DSN = unreachableDSN

	b, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer b.Close()

	if names := scheduleNames(b.Schedules); len(names) != 1 || names[0] != "channel_summary" {
		t.Fatalf("schedules = %v", names)
	}

	rec := httptest.NewRecorder()
	b.Handler.ServeHTTP(rec, signedPing(priv))
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"type":1}` {
		t.Fatalf("PING = %d %q", rec.Code, rec.Body.String())
	}

	// The summary run is the only thing that needs storage.
	if err := b.RunScheduled(context.Background()); err == nil {
		t.Fatal("RunScheduled succeeded without storage")
	}
}

func TestLazyKVRetriesFailedOpen(t *testing.T) {
	opens, closes := 0, 0
	mem := channelstate.NewMemoryKV()
	kv := &lazyKV{open: func(ctx context.Context) (channelstate.KV, func() error, error) {
		opens++
		if opens == 1 {
			return nil, nil, errors.New("connection refused")
		}
		return mem, func() error { closes++; return nil }, nil
	}}
	ctx := context.Background()

	if err := kv.Put(ctx, "k", []byte("v")); err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("first Put err = %v", err)
	}
	if err := kv.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("second Put: %v", err)
	}
	got, err := kv.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if opens != 2 {
		t.Fatalf("opened %d times, want 2", opens)
	}

	if err := kv.Close(); err != nil || closes != 1 {
		t.Fatalf("Close err = %v, closes = %d", err, closes)
	}
	if err := kv.Close(); err != nil || closes != 1 {
		t.Fatalf("second Close err = %v, closes = %d", err, closes)
	}
}

func TestGetBotRequiresPostgresAndRetries(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Cleanup(func() {
		botMu.Lock()
		defer botMu.Unlock()
		if bot != nil {
			bot.Close()
		}
		bot = nil
	})

	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	t.Setenv("APP_DISCORD_APP_ID", "app1")
	t.Setenv("APP_DISCORD_BOT_TOKEN", "token")
	t.Setenv("APP_DISCORD_PUBLIC_KEY", hex.EncodeToString(pub))
	t.Setenv("APP_MYDUC_ENABLED", "false")
	t.Setenv("APP_DATABASE_DRIVER", "duckdb")

	if _, err := getBot(); err == nil || !strings.Contains(err.Error(), "postgres") {
		t.Fatalf("getBot err = %v, want a postgres requirement", err)
	}

	t.Setenv("APP_DATABASE_DRIVER", "postgres")
	t.Setenv("APP_DATABASE_DSN", unreachableDSN)
	b, err := getBot()
	if err != nil {
		t.Fatalf("getBot after fixing config: %v", err)
	}
	again, err := getBot()
	if err != nil || again != b {
		t.Fatalf("getBot did not reuse the wired bot: %p %p %v", b, again, err)
	}
}
