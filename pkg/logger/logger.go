// Package logger provides an slog.Handler that copies request-scoped identifiers into every record.
package logger

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
)

const requestIDAttr = "request_id"

// ContextHandler decorates records with the active span and the chi request id.
// A logger already carrying request_id as an attribute does not get it twice.
type ContextHandler struct {
	slog.Handler
	hasRequestID bool
}

func NewContextHandler(handler slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: handler}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	if !h.hasRequestID {
		if reqID := middleware.GetReqID(ctx); reqID != "" {
			r.AddAttrs(slog.String(requestIDAttr, reqID))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	has := h.hasRequestID
	for _, a := range attrs {
		if a.Key == requestIDAttr {
			has = true
		}
	}
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs), hasRequestID: has}
}

// WithGroup keeps the request id check: attributes added inside a group are not top-level.
func (h *ContextHandler) WithGroup(group string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(group), hasRequestID: h.hasRequestID}
}
