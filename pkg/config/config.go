// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

// Config holds the process settings shared by the CLI and the HTTP server.
type Config struct {
	// DataRoot is the directory job outputs are written under.
	DataRoot string `env:"SOCKETLAB_DATA_ROOT" envDefault:"/data"`
	// Port is the HTTP listen port for serve mode.
	Port int `env:"SOCKETLAB_PORT" envDefault:"8000"`
	// LogLevel is any level name logrus understands (debug, info, warn...).
	LogLevel string `env:"SOCKETLAB_LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ConfigureLogging applies the configured level to the global logrus logger.
// Unknown level names fall back to info with a warning.
func (c Config) ConfigureLogging() {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logrus.WithField("level", c.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
