// Package logging builds the application's slog logger.
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"cohortly/internal/config"
)

// NewLogger returns a logger that writes text to stdout and, outside of tests,
// JSON to a rotated file under the configured logs directory. The returned
// closer releases the log file.
func NewLogger(cfg *config.Config, stdout io.Writer) (*slog.Logger, io.Closer) {
	if stdout == nil {
		stdout = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: Level(cfg.LogLevel)}
	console := slog.NewTextHandler(stdout, opts)

	if cfg.IsTest() || cfg.LogsDirectory == "" {
		return slog.New(console), io.NopCloser(nil)
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogsDirectory, cfg.AppName+".log"),
		MaxSize:    cfg.LogsMaxSizeInMb,
		MaxBackups: cfg.LogsMaxBackups,
		MaxAge:     cfg.LogsMaxAgeInDays,
		Compress:   true,
	}
	handler := fanout{console, slog.NewJSONHandler(file, opts)}
	return slog.New(handler), file
}

// Level maps a configured level to slog, defaulting to info.
func Level(level config.LogLevel) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// fanout sends every record to all handlers that accept its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
