package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	Discord struct {
		AppID     string `koanf:"app_id" yaml:"app_id"`
		BotToken  string `koanf:"bot_token" yaml:"bot_token"`
		PublicKey string `koanf:"public_key" yaml:"public_key"`
		GuildID   string `koanf:"guild_id" yaml:"guild_id"`
	} `koanf:"discord" yaml:"discord"`

	Summary struct {
		Provider           string        `koanf:"provider" yaml:"provider"`
		MinMessages        int           `koanf:"min_messages" yaml:"min_messages"`
		LookbackHint       time.Duration `koanf:"lookback_hint" yaml:"lookback_hint"`
		FetchLimit         int           `koanf:"fetch_limit" yaml:"fetch_limit"`
		ThreadName         string        `koanf:"thread_name" yaml:"thread_name"`
		AutoArchiveMinutes int           `koanf:"auto_archive_minutes" yaml:"auto_archive_minutes"`
		TimeZone           string        `koanf:"time_zone" yaml:"time_zone"`
		AbortOnFetchError  bool          `koanf:"abort_on_fetch_error" yaml:"abort_on_fetch_error"`
		Cron               string        `koanf:"cron" yaml:"cron"`
	} `koanf:"summary" yaml:"summary"`

	OpenAI struct {
		APIKey  string `koanf:"api_key" yaml:"api_key"`
		Model   string `koanf:"model" yaml:"model"`
		BaseURL string `koanf:"base_url" yaml:"base_url"`
	} `koanf:"openai" yaml:"openai"`

	Gemini struct {
		APIKey string `koanf:"api_key" yaml:"api_key"`
		Model  string `koanf:"model" yaml:"model"`
	} `koanf:"gemini" yaml:"gemini"`

	Reddit struct {
		URL       string `koanf:"url" yaml:"url"`
		UserAgent string `koanf:"user_agent" yaml:"user_agent"`
	} `koanf:"reddit" yaml:"reddit"`

	MyDuc struct {
		Enabled  bool   `koanf:"enabled" yaml:"enabled"`
		BaseURL  string `koanf:"base_url" yaml:"base_url"`
		Email    string `koanf:"email" yaml:"email"`
		Password string `koanf:"password" yaml:"password"`
		Search   string `koanf:"search" yaml:"search"`
		Cron     string `koanf:"cron" yaml:"cron"`
	} `koanf:"myduc" yaml:"myduc"`

	Database struct {
		Driver    string `koanf:"driver" yaml:"driver"`
		Directory string `koanf:"directory" yaml:"directory"`
		DSN       string `koanf:"dsn" yaml:"dsn"`
	} `koanf:"database" yaml:"database"`

	Server struct {
		Addr string `koanf:"addr" yaml:"addr"`
	} `koanf:"server" yaml:"server"`

	Log struct {
		Level    string `koanf:"level" yaml:"level"`
		TimeZone string `koanf:"time_zone" yaml:"time_zone"`
	} `koanf:"log" yaml:"log"`
}

// DefaultLocations are searched in order; the first file found wins.
var DefaultLocations = []string{
	"/etc/app/config.yaml",            // Standard system location
	"/config/config.yaml",             // Docker mounted volume location
	filepath.Join(".", "config.yaml"), // Local file in current directory
}

// Global singleton config instance
var (
	cfg  *AppConfig
	once sync.Once
)

// Get returns the global AppConfig instance
func Get() *AppConfig {
	once.Do(func() {
		var err error
		cfg, err = Load(DefaultLocations)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
	})
	return cfg
}

// Defaults returns the baseline values applied before any file or env var.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"summary.provider":             "openai",
		"summary.min_messages":         8,
		"summary.lookback_hint":        "1h",
		"summary.fetch_limit":          50,
		"summary.thread_name":          "Chat Summary",
		"summary.auto_archive_minutes": 60,
		"summary.time_zone":            "America/Los_Angeles",
		"summary.abort_on_fetch_error": true,
		"summary.cron":                 "0 * * * *",
		"openai.model":                 "gpt-4o",
		"gemini.model":                 "gemini-2.5-flash",
		"reddit.url":                   "https://www.reddit.com/r/aww/hot.json",
		"reddit.user_agent":            "DiscordBot:awwbot:v1.0.0 (contact: admin)",
		"myduc.enabled":                true,
		"myduc.base_url":               "https://nhakhoamyduc-api.onrender.com",
		"myduc.search":                 "pingFromAwwBot",
		"myduc.cron":                   "*/10 * * * *",
		"database.driver":              "duckdb",
		"database.directory":           "./dbfiles",
		"server.addr":                  ":8080",
		"log.level":                    "info",
	}
}

// Load reads configuration with Read and validates it.
func Load(locations []string) (*AppConfig, error) {
	cfg, err := Read(locations)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read merges the defaults, the first config file found in locations, a .env
// file and APP_ environment variables, in rising priority. It does not validate.
func Read(locations []string) (*AppConfig, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	configLoaded := false
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			slog.Info("Loading configuration file", "path", loc)
			if err := k.Load(file.Provider(loc), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("error loading config file %s: %w", loc, err)
			}
			configLoaded = true
			break
		}
	}

	if !configLoaded {
		slog.Warn("No config file found in any of the expected locations",
			"searched_locations", locations)
	}

	// .env only fills variables that are not already set in the process.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	// APP_DISCORD_BOT_TOKEN -> discord.bot_token. Only the first underscore
	// separates section from key, so keys keep their own underscores.
	callback := func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "app_")
		return strings.Replace(s, "_", ".", 1)
	}

	if err := k.Load(env.Provider("APP_", ".", callback), nil); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	var cfg AppConfig
	decoderConfig := koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
		},
	}

	if err := k.UnmarshalWithConf("", &cfg, decoderConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Log configuration details (with sensitive information redacted)
	slog.Debug("Configuration loaded",
		"database_driver", cfg.Database.Driver,
		"database_directory", cfg.Database.Directory,
		"discord_app_id", cfg.Discord.AppID,
		"discord_guild_id", cfg.Discord.GuildID,
		"bot_token_present", cfg.Discord.BotToken != "",
		"summary_provider", cfg.Summary.Provider,
		"myduc_credentials_present", cfg.MyDuc.Email != "" && cfg.MyDuc.Password != "")

	return &cfg, nil
}

// Validate checks the settings every host needs. Component-specific settings
// such as the public key are checked where the component is built.
func (c *AppConfig) Validate() error {
	if c.Discord.BotToken == "" {
		return fmt.Errorf("discord.bot_token is required")
	}
	if c.Discord.AppID == "" {
		return fmt.Errorf("discord.app_id is required")
	}
	if c.Summary.MinMessages < 1 {
		return fmt.Errorf("summary.min_messages must be >= 1")
	}
	if c.Summary.FetchLimit < 1 || c.Summary.FetchLimit > 100 {
		return fmt.Errorf("summary.fetch_limit must be between 1 and 100")
	}
	switch c.Summary.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("summary.provider must be openai or gemini, got %q", c.Summary.Provider)
	}
	switch c.Database.Driver {
	case "duckdb":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver must be duckdb or postgres, got %q", c.Database.Driver)
	}
	return nil
}

// ValidateCloudFunction checks the extra settings of the Cloud Functions host.
// Its local disk does not survive the instance, so the channel list has to
// live in Postgres.
func (c *AppConfig) ValidateCloudFunction() error {
	if c.Database.Driver != "postgres" {
		return fmt.Errorf("database.driver %q does not persist between Cloud Function instances, set database.driver: postgres", c.Database.Driver)
	}
	return nil
}
