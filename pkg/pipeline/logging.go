package pipeline

import (
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger creates a zerolog logger from the logging configuration
func NewLogger(config LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(config.Level))
	if err != nil || config.Level == "" {
		level = zerolog.InfoLevel
	}

	var output io.Writer = os.Stdout
	if config.Output == "stderr" {
		output = os.Stderr
	}

	switch config.Format {
	case "text", "console":
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "2006-01-02 15:04:05.000"}
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// DefaultLogger creates a console logger at info level
func DefaultLogger() zerolog.Logger {
	return NewLogger(LoggingConfig{
		Level:  "info",
		Format: "console",
		Output: "stdout",
	})
}

// NopLogger discards everything (useful for testing)
func NopLogger() zerolog.Logger {
	return zerolog.Nop()
}

// stdLogWriter captures standard log output and forwards it as info entries.
type stdLogWriter struct {
	logger zerolog.Logger
}

func (w stdLogWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		w.logger.Info().Msg(msg)
	}
	return len(p), nil
}

// RedirectStdLog sets the logger as the output of the standard log package.
// discordgo logs through it.
func RedirectStdLog(logger zerolog.Logger) {
	log.SetOutput(stdLogWriter{logger: logger.With().Str("component", "stdlog").Logger()})
	log.SetFlags(0)
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}
