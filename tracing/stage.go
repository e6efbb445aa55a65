package tracing

import (
	gorawronion "github.com/Keksclan/goRawrOnion"
	"github.com/Keksclan/goRawrOnion/contextx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Stage returns a handler that runs the rest of the pipeline inside a span
// named name. The span context replaces the carrier's context, so spans of
// nested stages become children. A nil cfg yields a passthrough.
func Stage[C contextx.Carrier, R any](cfg *Config, name string, attrs ...attribute.KeyValue) gorawronion.Handler[C, R] {
	if cfg == nil {
		return func(_ C, next gorawronion.Next[R]) (R, error) { return next() }
	}
	tracer := cfg.Tracer()
	return func(c C, next gorawronion.Next[R]) (R, error) {
		ctx, span := tracer.Start(c.Context(), name, trace.WithAttributes(attrs...))
		defer span.End()
		c.WithContext(ctx)

		res, err := next()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return res, err
	}
}
