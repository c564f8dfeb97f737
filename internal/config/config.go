// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every tunable of the server process. Values come from
// the environment, with defaults suited to local development.
type Config struct {
	TCPAddr      string   `envconfig:"TCP_ADDR" default:":8080"`
	WSAddr       string   `envconfig:"WS_ADDR" default:":8081"`
	Rooms        []string `envconfig:"ROOMS" default:"main,general"`
	MaxFrameSize int      `envconfig:"MAX_FRAME_SIZE" default:"1048576"`
	QueueSize    int      `envconfig:"QUEUE_SIZE" default:"256"`
	LogLevel     string   `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// SlogLevel maps the configured level name onto slog. Unknown names
// fall back to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
