package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
}

func TestLoad(t *testing.T) {
	t.Run("loads required config from env", func(t *testing.T) {
		t.Setenv("TELEGRAM_BOT_TOKEN", "test-token-123")
		t.Setenv("DATABASE_URL", "postgres://localhost/test")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, "test-token-123", cfg.TelegramBotToken)
		require.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
	})

	t.Run("applies defaults", func(t *testing.T) {
		setRequired(t)

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, DefaultTimezone, cfg.Timezone)
		require.Equal(t, time.UTC, cfg.Location)
		require.Equal(t, DefaultHTTPAddr, cfg.HTTPAddr)
		require.Equal(t, DefaultImagePromptTTL, cfg.ImagePromptTTL)
		require.Equal(t, DefaultAIRatePerMinute, cfg.AIRatePerMinute)
		require.Equal(t, DefaultWeeklySummaryCron, cfg.WeeklySummaryCron)
		require.Equal(t, ExporterNone, cfg.OTelExporter)
		require.False(t, cfg.WeeklySummaryEnabled)
		require.False(t, cfg.UseWebhook())
		require.False(t, cfg.AIEnabled())
	})

	t.Run("parses whitelisted user IDs", func(t *testing.T) {
		setRequired(t)
		t.Setenv("WHITELISTED_USER_IDS", " 123 , invalid,456,,789,")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, []int64{123, 456, 789}, cfg.WhitelistedUserIDs)
	})

	t.Run("strips @ from usernames", func(t *testing.T) {
		setRequired(t)
		t.Setenv("WHITELISTED_USERNAMES", "@alice, bob ,,")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, []string{"alice", "bob"}, cfg.WhitelistedUsernames)
	})

	t.Run("loads optional settings", func(t *testing.T) {
		setRequired(t)
		t.Setenv("GEMINI_API_KEY", "gemini-key")
		t.Setenv("TIMEZONE", "Asia/Yangon")
		t.Setenv("IMAGE_PROMPT_TTL", "90s")
		t.Setenv("AI_RATE_PER_MINUTE", "0")
		t.Setenv("DEFAULT_CURRENCY", "mmk")
		t.Setenv("WEEKLY_SUMMARY_ENABLED", "true")
		t.Setenv("OTEL_EXPORTER", "OTLP-HTTP")

		cfg, err := Load()
		require.NoError(t, err)
		require.True(t, cfg.AIEnabled())
		require.Equal(t, "Asia/Yangon", cfg.Location.String())
		require.Equal(t, 90*time.Second, cfg.ImagePromptTTL)
		require.Equal(t, 0, cfg.AIRatePerMinute)
		require.Equal(t, "MMK", cfg.DefaultCurrency)
		require.True(t, cfg.WeeklySummaryEnabled)
		require.Equal(t, ExporterOTLPHTTP, cfg.OTelExporter)
	})

	t.Run("generates webhook secret when missing", func(t *testing.T) {
		setRequired(t)
		t.Setenv("WEBHOOK_URL", "https://desk.example.com/telegram/webhook")

		cfg, err := Load()
		require.NoError(t, err)
		require.True(t, cfg.UseWebhook())
		require.Len(t, cfg.WebhookSecret, 32)
		require.NotContains(t, cfg.WebhookSecret, "-")
	})

	t.Run("keeps configured webhook secret", func(t *testing.T) {
		setRequired(t)
		t.Setenv("WEBHOOK_URL", "https://desk.example.com/telegram/webhook")
		t.Setenv("WEBHOOK_SECRET", "s3cret")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, "s3cret", cfg.WebhookSecret)
	})
}

func TestLoad_Validation(t *testing.T) {
	t.Run("reports every problem at once", func(t *testing.T) {
		t.Setenv("TELEGRAM_BOT_TOKEN", "")
		t.Setenv("DATABASE_URL", "")
		t.Setenv("TIMEZONE", "Mars/Olympus")
		t.Setenv("IMAGE_PROMPT_TTL", "soon")

		cfg, err := Load()
		require.Error(t, err)
		require.Nil(t, cfg)
		require.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN is required")
		require.Contains(t, err.Error(), "DATABASE_URL is required")
		require.Contains(t, err.Error(), "TIMEZONE")
		require.Contains(t, err.Error(), "IMAGE_PROMPT_TTL")
	})

	tests := []struct {
		name   string
		key    string
		value  string
		errMsg string
	}{
		{"negative ttl", "IMAGE_PROMPT_TTL", "-1m", "IMAGE_PROMPT_TTL"},
		{"bad rate", "AI_RATE_PER_MINUTE", "many", "AI_RATE_PER_MINUTE"},
		{"plain http webhook", "WEBHOOK_URL", "http://desk.example.com", "WEBHOOK_URL must use https"},
		{"unknown exporter", "OTEL_EXPORTER", "zipkin", "OTEL_EXPORTER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_IsUserWhitelisted(t *testing.T) {
	t.Parallel()

	t.Run("empty whitelist allows everyone", func(t *testing.T) {
		t.Parallel()
		cfg := &Config{}
		require.True(t, cfg.IsUserWhitelisted(1, ""))
		require.True(t, cfg.IsUserWhitelisted(99, "anyone"))
	})

	cfg := &Config{
		WhitelistedUserIDs:   []int64{123},
		WhitelistedUsernames: []string{"Alice"},
	}

	tests := []struct {
		name     string
		userID   int64
		username string
		want     bool
	}{
		{"by id", 123, "", true},
		{"by username ignoring case", 5, "alice", true},
		{"by username with at sign", 5, "@ALICE", true},
		{"unknown id and name", 5, "bob", false},
		{"unknown id without name", 5, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, cfg.IsUserWhitelisted(tt.userID, tt.username))
		})
	}
}
