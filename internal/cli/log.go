package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
// The HTTP server uses it to carry request-scoped loggers.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// =============================================================================
// Observability hooks
// =============================================================================

// logHooks reports pipeline, cache and server events as debug logs.
type logHooks struct {
	logger *log.Logger
}

func (h logHooks) OnParseStart(ctx context.Context, path string) {
	h.logger.Debug("parse started", "file", path)
}

func (h logHooks) OnParseComplete(ctx context.Context, path string, sections int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("parse failed", "file", path, "error", err, "duration", d)
		return
	}
	h.logger.Debug("parse complete", "file", path, "sections", sections, "duration", d)
}

func (h logHooks) OnGraphComplete(ctx context.Context, components, levels, warnings int, d time.Duration) {
	h.logger.Debug("graph complete", "components", components, "levels", levels, "warnings", warnings, "duration", d)
}

func (h logHooks) OnRenderStart(ctx context.Context, engine, format string) {
	h.logger.Debug("render started", "engine", engine, "format", format)
}

func (h logHooks) OnRenderComplete(ctx context.Context, engine, format string, size int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("render failed", "engine", engine, "format", format, "error", err, "duration", d)
		return
	}
	h.logger.Debug("render complete", "engine", engine, "format", format, "bytes", size, "duration", d)
}

func (h logHooks) OnCacheHit(ctx context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h logHooks) OnCacheMiss(ctx context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h logHooks) OnCacheSet(ctx context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h logHooks) OnRequest(ctx context.Context, method, path string) {
	loggerFromContext(ctx).Debug("request", "method", method, "path", path)
}

func (h logHooks) OnResponse(ctx context.Context, method, path string, status int, d time.Duration) {
	loggerFromContext(ctx).Info("response", "method", method, "path", path, "status", status, "duration", d)
}
