// config.go - Configuration for the registry host daemon.
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the daemon configuration, loaded from file, environment
// (REGISTRYD_* variables) and flags, in ascending precedence.
type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`
	// DataDir is the BadgerDB directory; empty runs on an in-memory store.
	DataDir    string `mapstructure:"data_dir"`
	LogLevel   string `mapstructure:"log_level"`
	RateLimit  int    `mapstructure:"rate_limit"`
	RefillRate int    `mapstructure:"refill_rate"`
}

func defaultConfig(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8437")
	v.SetDefault("data_dir", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("rate_limit", 20)
	v.SetDefault("refill_rate", 5)
}

// LoadConfig reads configuration from configPath (optional) and the
// environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	defaultConfig(v)
	v.SetEnvPrefix("REGISTRYD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for obviously broken values.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}
	if c.RateLimit > 0 && c.RefillRate <= 0 {
		return fmt.Errorf("refill_rate must be positive when rate limiting is enabled")
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q is not one of trace, debug, info, warn, error", c.LogLevel)
	}
	return nil
}
