package logger

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config defines the configuration options for the logger
type Config struct {
	// Level sets the minimum enabled level: "debug", "info", "warn" or "error".
	// Anything else means info.
	Level string

	// File, when set, also writes JSON lines to a rotated log file.
	File string

	// MaxSizeMB is the size in megabytes at which the log file is rotated.
	MaxSizeMB int

	// MaxBackups is the number of rotated files to keep.
	MaxBackups int

	// Compress gzips rotated files.
	Compress bool

	// Colorize enables colored console output.
	Colorize bool
}

// ParseLevel maps a level name to a zerolog level
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New builds a logger writing human-readable lines to console and, when
// configured, JSON lines to a rotated file.
func New(config Config, console io.Writer) zerolog.Logger {
	if config.MaxSizeMB == 0 {
		config.MaxSizeMB = 10
	}
	if config.MaxBackups == 0 {
		config.MaxBackups = 5
	}

	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        console,
		NoColor:    !config.Colorize,
		TimeFormat: time.TimeOnly,
	}}
	if config.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    config.MaxSizeMB,
			MaxBackups: config.MaxBackups,
			MaxAge:     28,
			Compress:   config.Compress,
		})
	}

	level := ParseLevel(config.Level)
	logctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(level).With().Timestamp()
	if level == zerolog.DebugLevel {
		return logctx.Caller().Logger()
	}
	return logctx.Logger()
}
