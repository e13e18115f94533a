// Package logger builds the process-wide zerolog.Logger.
package logger

import (
	"os"

	"github.com/autofi/ai-engine/config"
	"github.com/rs/zerolog"
)

// New returns a configured zerolog.Logger: human-readable console output in
// development, structured JSON in production. Level follows cfg.LogLevel,
// falling back to debug in development.
func New(cfg *config.Config) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if cfg.IsDevelopment() && cfg.LogLevel == "" {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if cfg.IsDevelopment() {
		out := zerolog.ConsoleWriter{Out: os.Stderr}
		return zerolog.New(out).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Str("env", cfg.Env).Logger()
}
