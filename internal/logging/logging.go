// Package logging provides structured logging using zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level written.
	Level zerolog.Level
	// Output defaults to os.Stderr.
	Output io.Writer
	// Pretty switches to the human-readable console writer.
	Pretty bool
}

// DefaultConfig returns the configuration used by the CLI.
func DefaultConfig() Config {
	return Config{
		Level:  zerolog.InfoLevel,
		Output: os.Stderr,
		Pretty: true,
	}
}

// Init replaces the global logger.
func Init(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        cfg.Output,
			TimeFormat: time.Kitchen,
		}
	}

	Logger = zerolog.New(output).
		Level(cfg.Level).
		With().
		Timestamp().
		Logger()
}

// ParseLevel parses a level name (case-insensitive), defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debug starts a new debug level message.
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Info starts a new info level message.
func Info() *zerolog.Event {
	return Logger.Info()
}

// Warn starts a new warn level message.
func Warn() *zerolog.Event {
	return Logger.Warn()
}

func init() {
	Init(Config{Level: zerolog.InfoLevel, Output: os.Stderr})
}
