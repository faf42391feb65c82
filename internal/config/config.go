// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Supported OTEL_EXPORTER values.
const (
	ExporterNone     = "none"
	ExporterStdout   = "stdout"
	ExporterOTLPGRPC = "otlp-grpc"
	ExporterOTLPHTTP = "otlp-http"
)

// Defaults for optional settings.
const (
	DefaultTimezone          = "UTC"
	DefaultHTTPAddr          = ":8080"
	DefaultImagePromptTTL    = 5 * time.Minute
	DefaultAIRatePerMinute   = 6
	DefaultWeeklySummaryCron = "0 20 * * 0"
	DefaultCurrency          = "USD"
)

// Config holds all configuration for the application.
type Config struct {
	TelegramBotToken     string
	DatabaseURL          string
	GeminiAPIKey         string
	LogLevel             string
	LogFormat            string
	LogHashSalt          string
	WhitelistedUserIDs   []int64
	WhitelistedUsernames []string

	Timezone string
	Location *time.Location

	HTTPAddr      string
	WebhookURL    string
	WebhookSecret string

	ImagePromptTTL  time.Duration
	AIRatePerMinute int
	DefaultCurrency string

	WeeklySummaryEnabled bool
	WeeklySummaryCron    string

	OTelExporter string
}

// Load reads configuration from environment variables, and from a .env file
// when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TelegramBotToken:     os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		LogLevel:             os.Getenv("LOG_LEVEL"),
		LogFormat:            os.Getenv("LOG_FORMAT"),
		LogHashSalt:          os.Getenv("LOG_HASH_SALT"),
		Timezone:             envOr("TIMEZONE", DefaultTimezone),
		HTTPAddr:             envOr("HTTP_ADDR", DefaultHTTPAddr),
		WebhookURL:           strings.TrimSpace(os.Getenv("WEBHOOK_URL")),
		WebhookSecret:        os.Getenv("WEBHOOK_SECRET"),
		DefaultCurrency:      strings.ToUpper(envOr("DEFAULT_CURRENCY", DefaultCurrency)),
		WeeklySummaryEnabled: os.Getenv("WEEKLY_SUMMARY_ENABLED") == "true",
		WeeklySummaryCron:    envOr("WEEKLY_SUMMARY_CRON", DefaultWeeklySummaryCron),
		OTelExporter:         strings.ToLower(envOr("OTEL_EXPORTER", ExporterNone)),
		ImagePromptTTL:       DefaultImagePromptTTL,
		AIRatePerMinute:      DefaultAIRatePerMinute,
	}

	var errs []string

	if loc, err := time.LoadLocation(cfg.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("TIMEZONE %q is invalid: %v", cfg.Timezone, err))
	} else {
		cfg.Location = loc
	}

	if ttlStr := os.Getenv("IMAGE_PROMPT_TTL"); ttlStr != "" {
		ttl, err := time.ParseDuration(ttlStr)
		if err != nil || ttl <= 0 {
			errs = append(errs, fmt.Sprintf("IMAGE_PROMPT_TTL %q must be a positive duration", ttlStr))
		} else {
			cfg.ImagePromptTTL = ttl
		}
	}

	if rateStr := os.Getenv("AI_RATE_PER_MINUTE"); rateStr != "" {
		n, err := strconv.Atoi(rateStr)
		if err != nil || n < 0 {
			errs = append(errs, fmt.Sprintf("AI_RATE_PER_MINUTE %q must be a non-negative integer", rateStr))
		} else {
			cfg.AIRatePerMinute = n
		}
	}

	cfg.WhitelistedUserIDs = parseUserIDs(os.Getenv("WHITELISTED_USER_IDS"))
	cfg.WhitelistedUsernames = parseUsernames(os.Getenv("WHITELISTED_USERNAMES"))

	if cfg.WebhookURL != "" && cfg.WebhookSecret == "" {
		cfg.WebhookSecret = strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	if err := cfg.validate(errs); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseUserIDs(s string) []int64 {
	var ids []int64
	for idStr := range strings.SplitSeq(s, ",") {
		idStr = strings.TrimSpace(idStr)
		if idStr == "" {
			continue
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func parseUsernames(s string) []string {
	var names []string
	for username := range strings.SplitSeq(s, ",") {
		username = strings.TrimPrefix(strings.TrimSpace(username), "@")
		if username == "" {
			continue
		}
		names = append(names, username)
	}
	return names
}

// validate checks required configuration, adding to errors found while
// parsing, and reports all of them at once.
func (c *Config) validate(errs []string) error {
	if c.TelegramBotToken == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN is required")
	}

	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	if c.WebhookURL != "" && !strings.HasPrefix(c.WebhookURL, "https://") {
		errs = append(errs, "WEBHOOK_URL must use https")
	}

	switch c.OTelExporter {
	case ExporterNone, ExporterStdout, ExporterOTLPGRPC, ExporterOTLPHTTP:
	default:
		errs = append(errs, fmt.Sprintf("OTEL_EXPORTER %q is not one of none, stdout, otlp-grpc, otlp-http", c.OTelExporter))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// UseWebhook reports whether updates arrive by webhook instead of polling.
func (c *Config) UseWebhook() bool {
	return c.WebhookURL != ""
}

// AIEnabled reports whether a Gemini API key is configured.
func (c *Config) AIEnabled() bool {
	return c.GeminiAPIKey != ""
}

// IsUserWhitelisted checks if a Telegram user ID or username is allowed.
// With no whitelist configured, everyone is allowed.
func (c *Config) IsUserWhitelisted(userID int64, username string) bool {
	if len(c.WhitelistedUserIDs) == 0 && len(c.WhitelistedUsernames) == 0 {
		return true
	}

	if slices.Contains(c.WhitelistedUserIDs, userID) {
		return true
	}

	if username != "" {
		username = strings.TrimPrefix(username, "@")
		for _, whitelisted := range c.WhitelistedUsernames {
			if strings.EqualFold(whitelisted, username) {
				return true
			}
		}
	}

	return false
}
