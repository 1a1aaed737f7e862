// Package logging builds the process logger from config.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"taskpulse/internal/config"
)

// New returns a logger writing to w, and to a rotating file when log.file is
// set. The returned closer releases the file.
func New(cfg *config.Config, w io.Writer) (*slog.Logger, io.Closer) {
	if cfg == nil {
		cfg = config.Default()
	}
	var closer io.Closer = nopCloser{}
	sink := w
	if cfg.Log.File != "" {
		fileLogger := &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     28,
			Compress:   true,
		}
		sink = io.MultiWriter(w, fileLogger)
		closer = fileLogger
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Log.Level)}
	var h slog.Handler
	if cfg.Log.Format == "json" {
		h = slog.NewJSONHandler(sink, opts)
	} else {
		h = slog.NewTextHandler(sink, opts)
	}
	return slog.New(h), closer
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
