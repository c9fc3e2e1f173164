// Package logging provides structured logging for enginelink using zerolog.
// Console output is used when stderr is a terminal and JSON otherwise, so the
// same diagnostics can be read by a person or shipped to a collector.
//
// Example usage:
//
//	log := logging.Default()
//	log.Info().Str("category", "checkpoint").Int("records", 12).Msg("Synced category")
//
//	ctx := logging.WithCategory(context.Background(), "lora")
//	logging.FromContext(ctx).Warn().Str("kind", "non_json_response").Msg("Soft failure")
package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/agentstation/enginelink/pkg/constants"
)

var (
	// defaultLogger is the global logger instance.
	defaultLogger atomic.Pointer[zerolog.Logger]

	// Nop logger for discarding output.
	Nop = zerolog.Nop()
)

func init() {
	logger := createDefaultLogger()
	defaultLogger.Store(&logger)
}

// createDefaultLogger builds the logger used before any configuration is applied.
func createDefaultLogger() zerolog.Logger {
	level := levelFromEnv()
	zerolog.SetGlobalLevel(level)

	var writer io.Writer = os.Stderr
	if isTerminal(os.Stderr) && getEnv("LOG_FORMAT") != "json" {
		writer = consoleWriter(os.Stderr, time.Kitchen, os.Getenv("NO_COLOR") != "")
	}

	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	if level <= zerolog.DebugLevel {
		logger = logger.With().Caller().Logger()
	}
	return logger
}

// Default returns the default global logger.
func Default() *zerolog.Logger {
	return defaultLogger.Load()
}

// SetDefault sets the default global logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger.Store(&logger)
	log.Logger = logger
}

// New creates a new logger with the given writer.
func New(w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(zerolog.GlobalLevel()).
		With().
		Timestamp().
		Logger()
}

// Debug starts a new debug level log event.
func Debug() *zerolog.Event {
	return Default().Debug()
}

// Info starts a new info level log event.
func Info() *zerolog.Event {
	return Default().Info()
}

// Warn starts a new warning level log event.
func Warn() *zerolog.Event {
	return Default().Warn()
}

// Error starts a new error level log event.
func Error() *zerolog.Event {
	return Default().Error()
}

// Err creates a new error log event with the given error.
func Err(err error) *zerolog.Event {
	return Default().Err(err)
}

func consoleWriter(out io.Writer, timeFormat string, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: timeFormat,
		NoColor:    noColor,
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// levelFromEnv reads ENGINELINK_LOG_LEVEL (or LOG_LEVEL), falling back to
// debug when DEBUG is set and info otherwise.
func levelFromEnv() zerolog.Level {
	levelStr := getEnv("LOG_LEVEL")
	if levelStr == "" {
		if os.Getenv("DEBUG") != "" {
			return zerolog.DebugLevel
		}
		return zerolog.InfoLevel
	}
	return ParseLevel(levelStr)
}

// getEnv looks a key up with the application prefix first.
func getEnv(key string) string {
	if v := os.Getenv(constants.EnvPrefix + "_" + key); v != "" {
		return v
	}
	return os.Getenv(key)
}

// ParseLevel parses a log level name, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "warning":
		return zerolog.WarnLevel
	case "none", "off":
		return zerolog.Disabled
	}
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}
