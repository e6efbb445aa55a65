package httpmw

import (
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	gorawronion "github.com/Keksclan/goRawrOnion"
	"github.com/Keksclan/goRawrOnion/contextx"
	"github.com/Keksclan/goRawrOnion/ratelimit"
	"github.com/Keksclan/goRawrOnion/security"
	"github.com/Keksclan/goRawrOnion/tracing"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

func passthrough(_ *Exchange, next gorawronion.Next[struct{}]) (struct{}, error) { return next() }

// RequestID ensures the request context carries a request ID, reusing the
// caller's RequestIDHeader when present, and echoes it on the response.
func RequestID() Handler {
	return func(e *Exchange, next gorawronion.Next[struct{}]) (struct{}, error) {
		id := e.R.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		e.WithContext(contextx.WithRequestID(e.Context(), id))
		e.W.Header().Set(RequestIDHeader, id)
		return next()
	}
}

// Recovery turns a panic further down the pipeline into a 500 response.
// The panic is logged when logger is non-nil.
func Recovery(logger *zap.Logger) Handler {
	return func(e *Exchange, next gorawronion.Next[struct{}]) (_ struct{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				if logger != nil {
					logger.Error("panic recovered",
						zap.Any("panic", r),
						zap.String("stack", string(debug.Stack())),
						zap.String("method", e.R.Method),
						zap.String("path", e.R.URL.Path),
					)
				}
				err = NewError(http.StatusInternalServerError, "")
			}
		}()
		return next()
	}
}

// Logging logs every request with its status and duration. Server errors
// log at Error, client errors and requests slower than slow at Warn, and
// the rest at Debug. A zero slow disables slow logging. A nil logger
// yields a passthrough.
func Logging(logger *zap.Logger, slow time.Duration) Handler {
	if logger == nil {
		return passthrough
	}
	return func(e *Exchange, next gorawronion.Next[struct{}]) (struct{}, error) {
		start := time.Now()
		_, err := next()
		duration := time.Since(start)

		status := responseStatus(e, err)
		fields := []zap.Field{
			zap.String("method", e.R.Method),
			zap.String("path", e.R.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
		}
		if id := contextx.RequestIDFromContext(e.Context()); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}

		switch {
		case status >= 500:
			logger.Error("server error", append(fields, zap.String("remote_addr", e.R.RemoteAddr))...)
		case status >= 400:
			logger.Warn("client error", fields...)
		case slow > 0 && duration > slow:
			logger.Warn("slow request", fields...)
		default:
			logger.Debug("request", fields...)
		}
		return struct{}{}, err
	}
}

// IPBlock rejects requests from addresses b does not allow with 403.
func IPBlock(b *security.IPBlocker) Handler {
	return func(e *Exchange, next gorawronion.Next[struct{}]) (struct{}, error) {
		if !b.EvaluateHTTP(e.R) {
			return struct{}{}, NewError(http.StatusForbidden, "")
		}
		return next()
	}
}

// RateLimit rejects requests with 429 once l is exhausted.
func RateLimit(l *ratelimit.Limiter) Handler {
	guard := ratelimit.Guard[*Exchange, struct{}](l)
	return func(e *Exchange, next gorawronion.Next[struct{}]) (struct{}, error) {
		_, err := guard(e, next)
		if errors.Is(err, ratelimit.ErrLimited) {
			e.W.Header().Set("Retry-After", "1")
			return struct{}{}, NewError(http.StatusTooManyRequests, "")
		}
		return struct{}{}, err
	}
}

// Tracing creates a server span for every request, continuing any trace
// context in the request headers. A nil cfg yields a passthrough.
func Tracing(cfg *tracing.Config) Handler {
	if cfg == nil {
		return passthrough
	}
	tracer := cfg.Tracer()
	return func(e *Exchange, next gorawronion.Next[struct{}]) (struct{}, error) {
		ctx := cfg.Propagator().Extract(e.Context(), propagation.HeaderCarrier(e.R.Header))
		ctx, span := tracer.Start(ctx, e.R.Method+" "+e.R.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", e.R.Method),
				attribute.String("url.path", e.R.URL.Path),
			),
		)
		defer span.End()
		e.WithContext(ctx)

		_, err := next()
		if err != nil {
			span.RecordError(err)
		}
		status := responseStatus(e, err)
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= 500 {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		return struct{}{}, err
	}
}
