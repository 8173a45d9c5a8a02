package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "channelpass", cfg.AppName)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "https://api.telegram.org", cfg.TelegramAPIURL)
	assert.Equal(t, "https://api.yookassa.ru/v3", cfg.ProviderAPIURL)
	assert.Equal(t, "100.00", cfg.SubscriptionAmount)
	assert.Equal(t, "RUB", cfg.SubscriptionCurrency)
	assert.Equal(t, 30*time.Second, cfg.BotPollTimeout)
	assert.Equal(t, 30*24*time.Hour, cfg.RetentionWindow)
	assert.Equal(t, time.Hour, cfg.RetentionSweep)
	assert.Equal(t, "postgres", cfg.DBType)
	assert.Equal(t, 25, cfg.DBMaxOpenConn)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "  123:abc  ")
	t.Setenv("CHANNEL_ID", "@mychannel")
	t.Setenv("SUBSCRIPTION_CURRENCY", "eur")
	t.Setenv("BOT_POLL_TIMEOUT", "45s")
	t.Setenv("RETENTION_WINDOW", "72h")
	t.Setenv("DATABASE_MAX_OPEN_CONN", "50")

	cfg := Load()

	assert.Equal(t, "123:abc", cfg.TelegramBotToken, "token is trimmed")
	assert.Equal(t, "@mychannel", cfg.ChannelID)
	assert.Equal(t, "EUR", cfg.SubscriptionCurrency, "currency is normalized")
	assert.Equal(t, 45*time.Second, cfg.BotPollTimeout)
	assert.Equal(t, 72*time.Hour, cfg.RetentionWindow)
	assert.Equal(t, 50, cfg.DBMaxOpenConn)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("BOT_POLL_TIMEOUT", "soon")
	t.Setenv("DATABASE_MAX_OPEN_CONN", "many")

	cfg := Load()

	assert.Equal(t, 30*time.Second, cfg.BotPollTimeout)
	assert.Equal(t, 25, cfg.DBMaxOpenConn)
}
