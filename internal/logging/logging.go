// Package logging builds the process logger: charmbracelet/log records
// written to a rotating file and optionally mirrored to stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger configuration.
type Config struct {
	Level      string // debug, info, warn, error
	File       string // empty disables the file sink
	MaxSizeMB  int
	MaxFiles   int
	MaxAgeDays int
	Stderr     bool
}

// Logger wraps the root logger and the file it rotates.
type Logger struct {
	*log.Logger
	file *lumberjack.Logger
}

// New creates the root logger. At least one sink is always active: with no
// file and no stderr, records are discarded.
func New(cfg Config) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var writers []io.Writer
	var file *lumberjack.Logger
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		file = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 10), // megabytes
			MaxBackups: orDefault(cfg.MaxFiles, 3),
			MaxAge:     orDefault(cfg.MaxAgeDays, 28), // days
			Compress:   true,
		}
		writers = append(writers, file)
	}
	if cfg.Stderr {
		writers = append(writers, os.Stderr)
	}

	var w io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		w = writers[0]
	default:
		w = io.MultiWriter(writers...)
	}

	l := log.NewWithOptions(w, log.Options{
		ReportCaller:    level == log.DebugLevel,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "learnquest",
	})
	return &Logger{Logger: l, file: file}, nil
}

// Component returns a child logger for one subsystem.
func (l *Logger) Component(name string) *log.Logger {
	return l.WithPrefix("learnquest/" + name)
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// ParseLevel accepts the config spellings of a level. Empty means info.
func ParseLevel(s string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return log.InfoLevel, nil
	case "debug":
		return log.DebugLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// Discard returns a logger that drops everything. Used by tests and
// one-shot CLI commands.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
