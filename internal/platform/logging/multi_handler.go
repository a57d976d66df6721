package logging

import (
	"context"
	"errors"
	"log/slog"
)

// MultiHandler fans each record out to several slog handlers. The service
// uses it to keep a pretty console stream and a JSON file sink fed from the
// same logger.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler wraps handlers into a single fan-out handler.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

// Enabled reports true when any wrapped handler wants the level, so a debug
// file sink still sees records the info console drops.
func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

// Handle delivers the record to every wrapped handler that accepts its
// level. Each handler gets its own clone because handlers may mutate shared
// record state.
func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error { //nolint:gocritic // slog.Handler takes the record by value
	var errs []error

	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}

// WithAttrs fans the attrs out to every wrapped handler.
func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	wrapped := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		wrapped[i] = handler.WithAttrs(attrs)
	}

	return NewMultiHandler(wrapped...)
}

// WithGroup fans the group out to every wrapped handler.
func (h *MultiHandler) WithGroup(name string) slog.Handler {
	wrapped := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		wrapped[i] = handler.WithGroup(name)
	}

	return NewMultiHandler(wrapped...)
}
