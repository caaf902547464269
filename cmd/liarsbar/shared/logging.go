package shared

import (
	"fmt"
	"io"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/rs/zerolog"
)

// ParseLevel maps a config log_level string onto a zerolog level.
// Unknown strings fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
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

// SetupLogger builds the game-side logger: pretty console output on
// stderr, plus structured JSON appended to logFile when it is set. The
// returned closer owns the log file handle.
func SetupLogger(level, logFile string) (zerolog.Logger, io.Closer, error) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr}}
	var closer io.Closer = nopCloser{}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
	return logger, closer, nil
}

// SetupTransportLogger builds the charm logger used by the websocket
// layer, honoring the same log_level string.
func SetupTransportLogger(level string) *charmlog.Logger {
	logger := charmlog.New(os.Stderr)
	switch level {
	case "debug":
		logger.SetLevel(charmlog.DebugLevel)
	case "warn":
		logger.SetLevel(charmlog.WarnLevel)
	case "error":
		logger.SetLevel(charmlog.ErrorLevel)
	default:
		logger.SetLevel(charmlog.InfoLevel)
	}
	return logger
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
