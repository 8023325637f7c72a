// Package logger builds the root zerolog instance every component logger
// derives from.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config selects the log level and output format.
type Config struct {
	// Level is one of debug, info, warn, error. Anything else means info.
	Level string
	// Pretty switches to human-readable console output for development.
	Pretty bool
}

// New builds the root logger and sets the global level, so level and
// format are decided exactly once at startup.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stdout
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	return zerolog.New(out).With().Timestamp().Caller().Logger()
}

// SetGlobalLogger routes the zerolog package-level helpers through the
// configured logger.
func SetGlobalLogger(l zerolog.Logger) {
	log.Logger = l
}
