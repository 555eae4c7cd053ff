package log

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewDefaultLogger returns a default logger that writes to the given writer
// in the given format at the given level. The plain format is intended for
// humans, the JSON format for log collectors.
func NewDefaultLogger(w io.Writer, format, level string) (Logger, error) {
	logLevel, err := ParseLogLevel(level)
	if err != nil {
		return nil, err
	}

	var logger zerolog.Logger
	switch format {
	case LogFormatPlain:
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    true,
			TimeFormat: time.RFC3339,
		})
	case LogFormatJSON:
		logger = zerolog.New(w)
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}

	return defaultLogger{
		Logger: logger.Level(logLevel).With().Timestamp().Logger(),
	}, nil
}

// MustNewDefaultLogger delegates a call to NewDefaultLogger and panics on
// error. It is mainly used in tests and command-line wiring.
func MustNewDefaultLogger(w io.Writer, format, level string) Logger {
	logger, err := NewDefaultLogger(w, format, level)
	if err != nil {
		panic(err)
	}

	return logger
}

// NewOSLogger returns a plain-format logger writing to standard error at the
// given level.
func NewOSLogger(level string) (Logger, error) {
	return NewDefaultLogger(os.Stderr, LogFormatPlain, level)
}
