package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"imgdup/types"
)

// Options configures the run logger
type Options struct {
	Level  string    // debug, info, warn, error
	Format string    // text or json
	File   string    // optional log file, opened in append mode
	Output io.Writer // used when File is empty; defaults to stderr
}

// ParseLevel converts a level name into a slog level
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// Setup builds the logger for a run. The returned close function flushes and
// closes the log file, if any, and is always safe to call.
func Setup(opts Options) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var logFile *os.File
	if opts.File != "" {
		logFile, err = os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = logFile
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "json":
		handler = slog.NewJSONHandler(out, handlerOpts)
	case "text", "":
		handler = slog.NewTextHandler(out, handlerOpts)
	default:
		if logFile != nil {
			logFile.Close()
		}
		return nil, nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	logger := slog.New(handler)
	if logFile == nil {
		return logger, func() error { return nil }, nil
	}

	logger.Info("imgdup log started", "at", time.Now().Format(time.RFC3339))
	closeFn := func() error {
		if logFile == nil {
			return nil
		}
		logger.Info("imgdup log closed", "at", time.Now().Format(time.RFC3339))
		err := logFile.Close()
		logFile = nil
		return err
	}
	return logger, closeFn, nil
}

// Discard returns a logger that drops everything
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ImageProcessed logs the outcome of processing one image
func ImageProcessed(logger *slog.Logger, outcome types.Outcome) {
	if outcome.OK() {
		logger.Debug("processed image",
			"path", outcome.Path,
			"width", outcome.Info.Width,
			"height", outcome.Info.Height,
			"fingerprint", outcome.Info.Fingerprint.Hex())
		return
	}

	var kind interface{ Kind() string }
	if errors.As(outcome.Err, &kind) {
		logger.Warn("failed to process image", "path", outcome.Path, "kind", kind.Kind(), "error", outcome.Err)
		return
	}
	logger.Warn("failed to process image", "path", outcome.Path, "error", outcome.Err)
}
