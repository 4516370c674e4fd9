// log.go — context-carried structured logging.
//
// The engine never owns a logger; callers attach one to the context and the
// engine logs through it. Without one, logging is a no-op.
package tmpl

import (
	"context"
	"log/slog"
)

/* ===========================
   PUBLIC API
   =========================== */

// LoggingContext returns a context carrying log, which the engine uses for
// render diagnostics.
func LoggingContext(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, logCtxKey, log)
}

//// END_OF_PUBLIC

/* ===========================
   PRIVATE
   =========================== */

type ctxKey struct{ name string }

var logCtxKey = ctxKey{name: "logger"}

func logger(ctx context.Context) *slog.Logger {
	val := ctx.Value(logCtxKey)
	if val == nil {
		return slog.New(noopHandler{})
	}
	log, ok := val.(*slog.Logger)
	if !ok {
		return slog.New(noopHandler{})
	}
	return log
}

type noopHandler struct{}

func (noopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (noopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h noopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h noopHandler) WithGroup(string) slog.Handler           { return h }
