package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string
	LogFormat   string

	HTTPAddr string

	TelegramBotToken string
	TelegramAPIURL   string
	ChannelID        string
	SupportURL       string
	BotPollTimeout   time.Duration

	ProviderShopID        string
	ProviderSecretKey     string
	ProviderWebhookSecret string
	ProviderAPIURL        string
	ProviderTimeout       time.Duration

	SubscriptionAmount   string
	SubscriptionCurrency string
	ReturnURL            string

	RetentionWindow time.Duration
	RetentionSweep  time.Duration

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "channelpass"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:   strings.ToLower(getenv("LOG_FORMAT", "json")),

		HTTPAddr: getenv("HTTP_ADDR", ":8080"),

		TelegramBotToken: strings.TrimSpace(getenv("TELEGRAM_BOT_TOKEN", "")),
		TelegramAPIURL:   getenv("TELEGRAM_API_URL", "https://api.telegram.org"),
		ChannelID:        strings.TrimSpace(getenv("CHANNEL_ID", "")),
		SupportURL:       getenv("SUPPORT_URL", ""),
		BotPollTimeout:   getenvDuration("BOT_POLL_TIMEOUT", 30*time.Second),

		ProviderShopID:        strings.TrimSpace(getenv("YOOKASSA_SHOP_ID", "")),
		ProviderSecretKey:     strings.TrimSpace(getenv("YOOKASSA_SECRET_KEY", "")),
		ProviderWebhookSecret: strings.TrimSpace(getenv("YOOKASSA_WEBHOOK_SECRET", "")),
		ProviderAPIURL:        getenv("YOOKASSA_API_URL", "https://api.yookassa.ru/v3"),
		ProviderTimeout:       getenvDuration("PROVIDER_TIMEOUT", 12*time.Second),

		SubscriptionAmount:   getenv("SUBSCRIPTION_AMOUNT", "100.00"),
		SubscriptionCurrency: strings.ToUpper(getenv("SUBSCRIPTION_CURRENCY", "RUB")),
		ReturnURL:            getenv("RETURN_URL", ""),

		RetentionWindow: getenvDuration("RETENTION_WINDOW", 30*24*time.Hour),
		RetentionSweep:  getenvDuration("RETENTION_SWEEP_INTERVAL", time.Hour),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "channelpass"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
