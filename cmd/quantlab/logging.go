package main

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds a console+rotating-file zerolog.Logger, adapted from
// the rest of the example pack's logging.NewLoggerWithConfig (the teacher
// itself logs with log/slog; this CLI's ecosystem logger is wired in per
// SPEC_FULL's ambient-stack expansion rather than dropped for lack of a
// teacher precedent).
func newLogger(level, filePath string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	writers := []io.Writer{
		zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339},
	}
	if filePath != "" {
		if err := os.MkdirAll(filepath.Dir(filePath), 0755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   filePath,
				MaxSize:    100,
				MaxBackups: 7,
				MaxAge:     30,
			})
		}
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(lvl).With().Timestamp().Logger()
}
