package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// ErrInvalidConfig is returned by Validate when a field is out of range.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all configurable game and server parameters.
type Config struct {
	// Pairs is N: the board holds 2N cards carrying values 1..N twice each.
	Pairs         int   `json:"pairs"`
	MatchDelayMS  int   `json:"match_delay_ms"`
	MaxNameLength int   `json:"max_name_length"`
	WSPort        int   `json:"ws_port"`
	ShuffleSeed   int64 `json:"shuffle_seed"` // 0 = seed from the clock

	DatabaseURL string `json:"database_url"`
	AuthBaseURL string `json:"auth_base_url"`
	NATSURL     string `json:"nats_url"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		Pairs:         4,
		MatchDelayMS:  500,
		MaxNameLength: 24,
		WSPort:        8080,
		LogLevel:      "info",
	}
}

// Load reads configuration from an optional config.json file,
// then applies environment variable overrides. Fields not set
// in either source retain their default values.
func Load() *Config {
	return LoadFile("config.json")
}

// LoadFile is Load with an explicit JSON file path. A missing file is not an error.
func LoadFile(path string) *Config {
	cfg := Defaults()

	if f, err := os.Open(path); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			slog.Warn("failed to parse config file", "tag", "config", "path", path, "err", err)
		}
	}

	overrideInt(&cfg.Pairs, "PAIRS")
	overrideInt(&cfg.MatchDelayMS, "MATCH_DELAY_MS")
	overrideInt(&cfg.MaxNameLength, "MAX_NAME_LENGTH")
	overrideInt(&cfg.WSPort, "WS_PORT")
	overrideInt64(&cfg.ShuffleSeed, "SHUFFLE_SEED")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.AuthBaseURL, "AUTH_BASE_URL")
	overrideString(&cfg.NATSURL, "NATS_URL")
	overrideString(&cfg.LogLevel, "LOG_LEVEL")

	return cfg
}

// Validate reports the first out-of-range field.
func (c *Config) Validate() error {
	switch {
	case c.Pairs < 1:
		return fmt.Errorf("%w: pairs must be at least 1, got %d", ErrInvalidConfig, c.Pairs)
	case c.MatchDelayMS < 0:
		return fmt.Errorf("%w: match_delay_ms must not be negative, got %d", ErrInvalidConfig, c.MatchDelayMS)
	case c.MaxNameLength < 1:
		return fmt.Errorf("%w: max_name_length must be at least 1, got %d", ErrInvalidConfig, c.MaxNameLength)
	case c.WSPort < 0 || c.WSPort > 65535:
		return fmt.Errorf("%w: ws_port out of range: %d", ErrInvalidConfig, c.WSPort)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// MatchDelay is MatchDelayMS as a duration.
func (c *Config) MatchDelay() time.Duration {
	return time.Duration(c.MatchDelayMS) * time.Millisecond
}

// ParseLevel maps a LOG_LEVEL string to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch s {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, s)
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			slog.Warn("invalid integer in environment", "tag", "config", "key", envKey, "value", val)
		}
	}
}

func overrideInt64(field *int64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			*field = n
		} else {
			slog.Warn("invalid integer in environment", "tag", "config", "key", envKey, "value", val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}
