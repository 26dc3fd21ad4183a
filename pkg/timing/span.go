//go:build timedtrace

package timing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/kestrel-xyz/timed"

// SpanScope is an open tracing span around a timed function. The scope
// is entered before the start sample and ended when the wrapper returns.
type SpanScope struct {
	span trace.Span
}

// EnterSpan opens a span named after the report label. The span is
// exported through whatever tracer provider the host program installed
// with otel.SetTracerProvider.
func EnterSpan(label string) SpanScope {
	_, span := otel.Tracer(tracerName).Start(context.Background(), label,
		trace.WithAttributes(attribute.String("function", label)))
	return SpanScope{span: span}
}

// End closes the scope.
func (s SpanScope) End() {
	if s.span != nil {
		s.span.End()
	}
}
