package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Pairs != 4 {
		t.Errorf("expected Pairs=4, got %d", cfg.Pairs)
	}
	if cfg.MatchDelayMS != 500 {
		t.Errorf("expected MatchDelayMS=500, got %d", cfg.MatchDelayMS)
	}
	if cfg.MaxNameLength != 24 {
		t.Errorf("expected MaxNameLength=24, got %d", cfg.MaxNameLength)
	}
	if cfg.WSPort != 8080 {
		t.Errorf("expected WSPort=8080, got %d", cfg.WSPort)
	}
	if cfg.MatchDelay() != 500*time.Millisecond {
		t.Errorf("expected MatchDelay=500ms, got %v", cfg.MatchDelay())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("PAIRS", "6")
	t.Setenv("MATCH_DELAY_MS", "250")
	t.Setenv("WS_PORT", "9090")
	t.Setenv("NATS_URL", "nats://broker:4222")

	cfg := LoadFile(filepath.Join(t.TempDir(), "missing.json"))

	if cfg.Pairs != 6 {
		t.Errorf("expected Pairs=6 after env override, got %d", cfg.Pairs)
	}
	if cfg.MatchDelayMS != 250 {
		t.Errorf("expected MatchDelayMS=250 after env override, got %d", cfg.MatchDelayMS)
	}
	if cfg.WSPort != 9090 {
		t.Errorf("expected WSPort=9090 after env override, got %d", cfg.WSPort)
	}
	if cfg.NATSURL != "nats://broker:4222" {
		t.Errorf("expected NATSURL override, got %q", cfg.NATSURL)
	}
	// Non-overridden fields should remain default
	if cfg.MaxNameLength != 24 {
		t.Errorf("expected MaxNameLength=24 (default), got %d", cfg.MaxNameLength)
	}
}

func TestLoadWithInvalidEnv(t *testing.T) {
	t.Setenv("PAIRS", "invalid")

	cfg := LoadFile(filepath.Join(t.TempDir(), "missing.json"))

	if cfg.Pairs != 4 {
		t.Errorf("expected Pairs=4 (default) with invalid env, got %d", cfg.Pairs)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"pairs": 8, "match_delay_ms": 100}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MATCH_DELAY_MS", "50")

	cfg := LoadFile(path)

	if cfg.Pairs != 8 {
		t.Errorf("expected Pairs=8 from file, got %d", cfg.Pairs)
	}
	if cfg.MatchDelayMS != 50 {
		t.Errorf("expected env to win over file, got %d", cfg.MatchDelayMS)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero pairs", func(c *Config) { c.Pairs = 0 }},
		{"negative delay", func(c *Config) { c.MatchDelayMS = -1 }},
		{"empty name length", func(c *Config) { c.MaxNameLength = 0 }},
		{"port too large", func(c *Config) { c.WSPort = 70000 }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		cfg := Defaults()
		tt.mutate(cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", tt.name, err)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLevel(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
