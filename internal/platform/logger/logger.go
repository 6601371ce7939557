// Package logger wraps zerolog with the service-wide fields every log line
// carries (service, version, environment).
package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config controls logger construction.
type Config struct {
	Level       string // debug | info | warn | error; default info
	Environment string // "development" enables console output
	ServiceName string
	Version     string
}

// Logger embeds a configured zerolog.Logger.
type Logger struct {
	zerolog.Logger
}

// New builds a Logger writing JSON to stdout (or pretty console output in
// development).
func New(cfg Config) *Logger {
	level := parseLevel(cfg.Level)

	var out = zerolog.New(os.Stdout)
	if strings.EqualFold(cfg.Environment, "development") {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	l := out.Level(level).With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Logger()

	return &Logger{Logger: l}
}

// Nop returns a logger that discards everything; used in tests.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
