package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// DBPath is the SQLite database file.
	DBPath string
	// UserAgent identifies outbound scrape requests.
	UserAgent string
	// RateLimit, when set, overrides the requests/second ceiling for
	// scrapers whose source config does not pin one. Zero means each
	// scraper keeps its own default.
	RateLimit float64
	// ScrapeTimeout bounds a foreground scrape; past it the CLI
	// requests a cooperative stop. Zero disables the bound.
	ScrapeTimeout time.Duration
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

var validLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Load reads configuration from the environment, after loading an
// optional .env file from the working directory.
func Load() (*Config, error) {
	// Missing .env is the normal case, not an error.
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:    getEnv("GRIMOIRE_DB_PATH", "grimoire.db"),
		UserAgent: getEnv("GRIMOIRE_USER_AGENT", "Grimoire/0.1 (Traditional Medicine Research Tool)"),
		LogLevel:  getEnv("GRIMOIRE_LOG_LEVEL", "info"),
	}

	if cfg.DBPath == "" {
		return nil, errors.New("GRIMOIRE_DB_PATH must not be empty")
	}
	if !validLevels[cfg.LogLevel] {
		return nil, fmt.Errorf("GRIMOIRE_LOG_LEVEL %q must be one of: debug, info, warn, error", cfg.LogLevel)
	}

	var err error
	cfg.RateLimit, err = getEnvFloat("GRIMOIRE_RATE_LIMIT", 0)
	if err != nil {
		return nil, fmt.Errorf("GRIMOIRE_RATE_LIMIT: %w", err)
	}
	if cfg.RateLimit < 0 {
		return nil, errors.New("GRIMOIRE_RATE_LIMIT must be >= 0")
	}

	timeoutSecs, err := getEnvInt("GRIMOIRE_SCRAPE_TIMEOUT", 0)
	if err != nil {
		return nil, fmt.Errorf("GRIMOIRE_SCRAPE_TIMEOUT: %w", err)
	}
	if timeoutSecs < 0 {
		return nil, errors.New("GRIMOIRE_SCRAPE_TIMEOUT must be >= 0")
	}
	cfg.ScrapeTimeout = time.Duration(timeoutSecs) * time.Second

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", v)
	}
	return f, nil
}
