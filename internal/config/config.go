package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Feeds
	DataURL           string
	PriceURL          string
	UserAgent         string
	Referer           string
	HTTPTimeout       time.Duration
	RequestsPerMinute int

	// ServerChan
	ServerChanKey string

	// Telegram
	BotToken       string
	TelegramChatID int64

	// Database
	DBPath     string
	RunLockTTL time.Duration

	// Logging
	LogFile          string
	LogRetentionDays int
	LogLevel         string

	// Value tiers
	HighValueThreshold   float64
	MediumValueThreshold float64

	// Countdown
	ReminderOffset   time.Duration
	ReminderCount    int
	ReminderInterval time.Duration
	ArmWindow        time.Duration

	// Timezone every date/time comparison is made in
	Location *time.Location

	// Metrics
	PushgatewayURL string
}

func Load() (*Config, error) {
	cfg := &Config{
		// Feeds
		DataURL:           getEnv("DATA_URL", "https://alpha123.uk/api/data?fresh=1"),
		PriceURL:          getEnv("PRICE_URL", "https://alpha123.uk/api/price/?batch=today"),
		UserAgent:         getEnv("HTTP_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"),
		Referer:           getEnv("HTTP_REFERER", "https://alpha123.uk/"),
		HTTPTimeout:       time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 30)) * time.Second,
		RequestsPerMinute: getEnvInt("API_REQUESTS_PER_MINUTE", 60),

		// ServerChan
		ServerChanKey: getEnv("SERVERCHAN_KEY", ""),

		// Telegram
		BotToken:       getEnv("BOT_TOKEN", ""),
		TelegramChatID: getEnvInt64("TELEGRAM_CHAT_ID", 0),

		// Database
		DBPath:     getEnv("DB_PATH", "./airdrops.db"),
		RunLockTTL: time.Duration(getEnvInt("RUN_LOCK_TTL_MINUTES", 60)) * time.Minute,

		// Logging
		LogFile:          getEnv("LOG_FILE", "./airdrop_monitor.log"),
		LogRetentionDays: getEnvInt("LOG_RETENTION_DAYS", 7),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", "info")),

		// Value tiers
		HighValueThreshold:   getEnvFloat("HIGH_VALUE_THRESHOLD", 100),
		MediumValueThreshold: getEnvFloat("MEDIUM_VALUE_THRESHOLD", 50),

		// Countdown
		ReminderOffset:   time.Duration(getEnvInt("REMINDER_OFFSET_MINUTES", 3)) * time.Minute,
		ReminderCount:    getEnvInt("REMINDER_COUNT", 3),
		ReminderInterval: time.Duration(getEnvInt("REMINDER_INTERVAL_SECONDS", 30)) * time.Second,
		ArmWindow:        time.Duration(getEnvInt("ARM_WINDOW_MINUTES", 10)) * time.Minute,

		// Metrics
		PushgatewayURL: strings.TrimSuffix(getEnv("METRICS_PUSHGATEWAY_URL", ""), "/"),
	}

	tz := getEnv("TIMEZONE", "Asia/Shanghai")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	cfg.Location = loc

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DataURL == "" || c.PriceURL == "" {
		return fmt.Errorf("DATA_URL and PRICE_URL are required")
	}
	if c.ReminderCount < 1 {
		return fmt.Errorf("REMINDER_COUNT must be positive, got %d", c.ReminderCount)
	}
	if c.ReminderInterval < 0 || c.ReminderOffset < 0 {
		return fmt.Errorf("reminder offset and interval must not be negative")
	}
	if c.ArmWindow <= 0 {
		return fmt.Errorf("ARM_WINDOW_MINUTES must be positive")
	}
	if c.MediumValueThreshold > c.HighValueThreshold {
		return fmt.Errorf("MEDIUM_VALUE_THRESHOLD (%.2f) exceeds HIGH_VALUE_THRESHOLD (%.2f)",
			c.MediumValueThreshold, c.HighValueThreshold)
	}
	return nil
}

// TelegramEnabled reports whether both the bot token and target chat are set.
func (c *Config) TelegramEnabled() bool {
	return c.BotToken != "" && c.TelegramChatID != 0
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
