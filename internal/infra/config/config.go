package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken string
	DatabaseURL   string
	LogLevel      string
	Environment   string
	RunMigrations bool
	MetricsAddr   string // empty disables the /metrics endpoint
	PromoSiteURL  string

	CycleInterval    time.Duration
	PremiumInterval  time.Duration
	StandardInterval time.Duration
	TargetPacing     time.Duration
	SenderPacing     time.Duration
	CacheTTL         time.Duration
	FlushConcurrency int
	SendRatePerSec   int
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")
	cfg.PromoSiteURL = os.Getenv("PROMO_SITE_URL")

	if cfg.RunMigrations, err = boolEnv("RUN_MIGRATIONS", true); err != nil {
		return nil, err
	}

	durations := []struct {
		key  string
		def  time.Duration
		dest *time.Duration
	}{
		{"CYCLE_INTERVAL", 60 * time.Second, &cfg.CycleInterval},
		{"PREMIUM_INTERVAL", 180 * time.Second, &cfg.PremiumInterval},
		{"STANDARD_INTERVAL", 390 * time.Second, &cfg.StandardInterval},
		{"TARGET_PACING", time.Second, &cfg.TargetPacing},
		{"SENDER_PACING", 2 * time.Second, &cfg.SenderPacing},
		{"CACHE_TTL", 5 * time.Minute, &cfg.CacheTTL},
	}
	for _, d := range durations {
		if *d.dest, err = durationEnv(d.key, d.def); err != nil {
			return nil, err
		}
	}
	if cfg.CycleInterval < time.Second {
		return nil, fmt.Errorf("CYCLE_INTERVAL must be at least 1s, got %s", cfg.CycleInterval)
	}

	if cfg.FlushConcurrency, err = positiveIntEnv("FLUSH_CONCURRENCY", 8); err != nil {
		return nil, err
	}
	if cfg.SendRatePerSec, err = positiveIntEnv("SEND_RATE_PER_SEC", 20); err != nil {
		return nil, err
	}

	return cfg, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}

func positiveIntEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return n, nil
}

func boolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
