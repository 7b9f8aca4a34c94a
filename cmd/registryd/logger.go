// logger.go - Structured logging for the registry host daemon.
package main

import (
	"os"

	"github.com/rs/zerolog"
)

// newLogger builds the daemon logger. The protocol packages stay silent;
// everything observable happens at this layer.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}
