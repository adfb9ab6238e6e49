package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GRIMOIRE_DB_PATH", "")
	t.Setenv("GRIMOIRE_USER_AGENT", "")
	t.Setenv("GRIMOIRE_LOG_LEVEL", "")
	t.Setenv("GRIMOIRE_RATE_LIMIT", "")
	t.Setenv("GRIMOIRE_SCRAPE_TIMEOUT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.DBPath != "grimoire.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "grimoire.db")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.RateLimit != 0 {
		t.Errorf("RateLimit = %v, want 0 (unset)", cfg.RateLimit)
	}
	if cfg.ScrapeTimeout != 0 {
		t.Errorf("ScrapeTimeout = %v, want 0", cfg.ScrapeTimeout)
	}
	if cfg.UserAgent == "" {
		t.Error("UserAgent should default to a non-empty string")
	}
}

func TestLoad_AllVarsSet(t *testing.T) {
	t.Setenv("GRIMOIRE_DB_PATH", "/tmp/test.db")
	t.Setenv("GRIMOIRE_USER_AGENT", "TestAgent/1.0")
	t.Setenv("GRIMOIRE_LOG_LEVEL", "debug")
	t.Setenv("GRIMOIRE_RATE_LIMIT", "2.5")
	t.Setenv("GRIMOIRE_SCRAPE_TIMEOUT", "300")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/tmp/test.db")
	}
	if cfg.UserAgent != "TestAgent/1.0" {
		t.Errorf("UserAgent = %q, want %q", cfg.UserAgent, "TestAgent/1.0")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.RateLimit != 2.5 {
		t.Errorf("RateLimit = %v, want 2.5", cfg.RateLimit)
	}
	if cfg.ScrapeTimeout != 300*time.Second {
		t.Errorf("ScrapeTimeout = %v, want 5m", cfg.ScrapeTimeout)
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	t.Setenv("GRIMOIRE_LOG_LEVEL", "verbose")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid GRIMOIRE_LOG_LEVEL, got nil")
	}
}

func TestLoad_InvalidRateLimit(t *testing.T) {
	t.Setenv("GRIMOIRE_LOG_LEVEL", "")

	t.Setenv("GRIMOIRE_RATE_LIMIT", "fast")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric GRIMOIRE_RATE_LIMIT, got nil")
	}

	t.Setenv("GRIMOIRE_RATE_LIMIT", "-1")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative GRIMOIRE_RATE_LIMIT, got nil")
	}
}

func TestLoad_InvalidScrapeTimeout(t *testing.T) {
	t.Setenv("GRIMOIRE_RATE_LIMIT", "")

	t.Setenv("GRIMOIRE_SCRAPE_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric GRIMOIRE_SCRAPE_TIMEOUT, got nil")
	}

	t.Setenv("GRIMOIRE_SCRAPE_TIMEOUT", "-5")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative GRIMOIRE_SCRAPE_TIMEOUT, got nil")
	}
}
