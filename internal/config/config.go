package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	CoinGeckoURL          string
	CoinGeckoFallbackURL  string
	CoinGeckoDelay        time.Duration
	CoinGeckoRetryMax     int
	CoinGeckoRPS          float64
	LocalCurrency         string
	HistoryDays           int
	DatabaseURL           string
	SQLitePath            string
	QuoteStaleThreshold   time.Duration
	QuoteWorkerInterval   time.Duration
	PositionInterval      time.Duration
	HTTPPort              string
	AdminAPIKey           string
	LogLevel              string
	LogFormat             string
	GoogleSheetID         string
	GoogleCredentialsJSON string
}

// Load reads configuration from environment variables with sensible defaults.
// Variables from a .env file in the working directory are applied first; variables already
// set in the environment win.
func Load() Config {
	loadDotEnv(".env")

	return Config{
		CoinGeckoURL:          envOrDefault("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoFallbackURL:  envOrDefault("COINGECKO_FALLBACK_URL", ""),
		CoinGeckoDelay:        envOrDefaultDuration("COINGECKO_DELAY", 6*time.Second),
		CoinGeckoRetryMax:     envOrDefaultInt("COINGECKO_RETRY_MAX", 5),
		CoinGeckoRPS:          envOrDefaultFloat("COINGECKO_RPS", 0.5),
		LocalCurrency:         strings.ToLower(envOrDefault("LOCAL_CURRENCY", "jpy")),
		HistoryDays:           envOrDefaultInt("HISTORY_DAYS", 365),
		DatabaseURL:           envOrDefault("DATABASE_URL", ""),
		SQLitePath:            envOrDefault("SQLITE_PATH", "btclti.db"),
		QuoteStaleThreshold:   envOrDefaultDuration("QUOTE_STALE_THRESHOLD", 2*time.Hour),
		QuoteWorkerInterval:   envOrDefaultDuration("QUOTE_WORKER_INTERVAL", 1*time.Hour),
		PositionInterval:      envOrDefaultDuration("POSITION_REPORT_INTERVAL", 24*time.Hour),
		HTTPPort:              envOrDefault("HTTP_PORT", "8080"),
		AdminAPIKey:           envOrDefault("ADMIN_API_KEY", ""),
		LogLevel:              envOrDefault("LOG_LEVEL", "info"),
		LogFormat:             envOrDefault("LOG_FORMAT", "text"),
		GoogleSheetID:         envOrDefault("GOOGLE_SHEET_ID", ""),
		GoogleCredentialsJSON: envOrDefault("GOOGLE_CREDENTIALS_JSON", ""),
	}
}

// SheetsEnabled reports whether both Google Sheets settings are present.
func (c Config) SheetsEnabled() bool {
	return c.GoogleSheetID != "" && c.GoogleCredentialsJSON != ""
}

func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("ignoring unreadable env file", "path", path, "error", err)
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Warn("invalid number env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return f
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		if d <= 0 {
			slog.Warn("non-positive duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
