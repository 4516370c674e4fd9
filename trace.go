// trace.go — context-carried tracing.
//
// Mirrors log.go: callers that want spans attach a tracer to the context,
// everyone else gets no-ops.
package tmpl

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

/* ===========================
   PUBLIC API
   =========================== */

// TracingContext returns a context carrying tracer; the engine opens a span
// per top-level render.
func TracingContext(ctx context.Context, tracer trace.Tracer) context.Context {
	return context.WithValue(ctx, traceCtxKey, tracer)
}

//// END_OF_PUBLIC

/* ===========================
   PRIVATE
   =========================== */

var traceCtxKey = ctxKey{name: "tracer"}

func tracerFrom(ctx context.Context) trace.Tracer {
	val := ctx.Value(traceCtxKey)
	if val == nil {
		return noop.NewTracerProvider().Tracer("")
	}
	tracer, ok := val.(trace.Tracer)
	if !ok {
		return noop.NewTracerProvider().Tracer("")
	}
	return tracer
}

func startSpan(ctx context.Context, op, template string) (context.Context, trace.Span) {
	return tracerFrom(ctx).Start(ctx, op,
		trace.WithAttributes(attribute.String("template.name", template)))
}
