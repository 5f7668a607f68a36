// Package logging configures the two loggers used across tnum: logrus for the
// CLI and orchestration layers, and slog component loggers for infrastructure
// clients. Both write to the same sink.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	OutputFile string // Path to log file (empty = stderr only)
	MaxSize    int64  // Max size in bytes before rotation (default: 10MB)
	MaxBackups int    // Number of old log files to keep (default: 3)
	JSONFormat bool
	AddSource  bool
}

// DefaultConfig returns the interactive CLI defaults.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		MaxSize:    10 * 1024 * 1024,
		MaxBackups: 3,
	}
}

var (
	mu      sync.Mutex
	logFile *os.File
)

// Setup installs the configured handlers as slog's default logger and as
// logrus' standard logger. It may be called more than once; the previous log
// file is closed.
func Setup(cfg Config) error {
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 10 * 1024 * 1024
	}
	if cfg.MaxBackups == 0 {
		cfg.MaxBackups = 3
	}

	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	var out io.Writer = os.Stderr
	if cfg.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.OutputFile), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		if err := rotateIfNeeded(cfg.OutputFile, cfg.MaxSize, cfg.MaxBackups); err != nil {
			return fmt.Errorf("failed to rotate logs: %w", err)
		}
		f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", cfg.OutputFile, err)
		}
		logFile = f
		out = io.MultiWriter(os.Stderr, f)
	}

	slogLevel, logrusLevel := ParseLevel(cfg.Level)

	opts := &slog.HandlerOptions{Level: slogLevel, AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.JSONFormat {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	slog.SetDefault(slog.New(handler))

	logrus.SetOutput(out)
	logrus.SetLevel(logrusLevel)
	if cfg.JSONFormat {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logrus.SetReportCaller(cfg.AddSource)

	return nil
}

// Close flushes and closes the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// ParseLevel maps a level name onto both logging libraries. Unknown names mean info.
func ParseLevel(level string) (slog.Level, logrus.Level) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "trace":
		return slog.LevelDebug, logrus.DebugLevel
	case "warn", "warning":
		return slog.LevelWarn, logrus.WarnLevel
	case "error":
		return slog.LevelError, logrus.ErrorLevel
	default:
		return slog.LevelInfo, logrus.InfoLevel
	}
}

// rotateIfNeeded shifts path -> path.1 -> path.2 ... once path exceeds maxSize.
func rotateIfNeeded(path string, maxSize int64, maxBackups int) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	if info.Size() < maxSize {
		return nil
	}

	oldest := fmt.Sprintf("%s.%d", path, maxBackups)
	if err := os.Remove(oldest); err != nil && !os.IsNotExist(err) {
		return err
	}
	for i := maxBackups - 1; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", path, i)
		to := fmt.Sprintf("%s.%d", path, i+1)
		if _, err := os.Stat(from); err == nil {
			if err := os.Rename(from, to); err != nil {
				return err
			}
		}
	}
	return os.Rename(path, path+".1")
}
