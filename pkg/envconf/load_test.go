package envconf

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

type nested struct {
	DSN string `env:"TEST_ENVCONF_DSN"`
}

type sample struct {
	Port     uint16        `env:"TEST_ENVCONF_PORT"`
	Rate     float64       `env:"TEST_ENVCONF_RATE" default:"1"`
	Timeout  time.Duration `env:"TEST_ENVCONF_TIMEOUT" default:"5s"`
	LogLevel slog.Level    `env:"TEST_ENVCONF_LOG_LEVEL" default:"INFO"`
	Nested   nested
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_ENVCONF_PORT", "8080")
	t.Setenv("TEST_ENVCONF_DSN", "postgres://localhost/db")
	t.Setenv("TEST_ENVCONF_TIMEOUT", "2m")

	cfg := new(sample)

	err := Load(cfg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("port: want 8080, got %d", cfg.Port)
	}
	if cfg.Rate != 1 {
		t.Errorf("rate default: want 1, got %v", cfg.Rate)
	}
	if cfg.Timeout != 2*time.Minute {
		t.Errorf("timeout: want 2m, got %v", cfg.Timeout)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("log level: want INFO, got %v", cfg.LogLevel)
	}
	if cfg.Nested.DSN != "postgres://localhost/db" {
		t.Errorf("nested dsn: got %q", cfg.Nested.DSN)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("TEST_ENVCONF_DSN", "x")

	// TEST_ENVCONF_PORT deliberately unset and has no default.
	err := Load(new(sample))
	if !errors.Is(err, ErrMissingRequired) {
		t.Fatalf("want ErrMissingRequired, got %v", err)
	}
}

func TestLoad_BadValue(t *testing.T) {
	t.Setenv("TEST_ENVCONF_PORT", "not-a-number")
	t.Setenv("TEST_ENVCONF_DSN", "x")

	err := Load(new(sample))
	if err == nil {
		t.Fatal("want parse error, got nil")
	}
}

func TestLoad_NotAPointer(t *testing.T) {
	err := Load(sample{})
	if err == nil {
		t.Fatal("want error for non-pointer destination")
	}
}
