package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath       string        `env:"DB_PATH" envDefault:"data/minigames.db"`
	LogLevel     slog.Level    `env:"LOG_LEVEL" envDefault:"INFO"`
	TickInterval time.Duration `env:"TICK_INTERVAL" envDefault:"1s"`
	ArenasFile   string        `env:"ARENAS_FILE"`
	MinigameID   string        `env:"MINIGAME_ID" envDefault:"minigame"`
	// EventBuffer is the output buffer of the in-process pub/sub feeding
	// event streams.
	EventBuffer int64 `env:"EVENT_BUFFER" envDefault:"64"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("TICK_INTERVAL must be positive, got %s", cfg.TickInterval)
	}
	return &cfg, nil
}
