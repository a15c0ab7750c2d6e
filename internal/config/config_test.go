package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.TickInterval != time.Second {
		t.Errorf("TickInterval = %v, want 1s", cfg.TickInterval)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want INFO", cfg.LogLevel)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("TICK_INTERVAL", "250ms")
	t.Setenv("ARENAS_FILE", "arenas.yaml")
	t.Setenv("EVENT_BUFFER", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9000" || cfg.LogLevel != slog.LevelDebug || cfg.TickInterval != 250*time.Millisecond {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ArenasFile != "arenas.yaml" || cfg.EventBuffer != 8 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsZeroTick(t *testing.T) {
	t.Setenv("TICK_INTERVAL", "0s")
	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded with zero tick interval")
	}
}
