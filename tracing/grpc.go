package tracing

import (
	"context"
	"strings"

	gorawronion "github.com/Keksclan/goRawrOnion"
	"github.com/Keksclan/goRawrOnion/interceptors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/metadata"
	grpcStatus "google.golang.org/grpc/status"
)

// Unary returns a unary handler that creates a server span for every RPC,
// continuing any trace context found in the incoming metadata. A nil cfg
// yields a passthrough.
func Unary(cfg *Config) interceptors.UnaryHandler {
	if cfg == nil {
		return func(_ *interceptors.UnaryCall, next gorawronion.Next[any]) (any, error) { return next() }
	}
	tracer := cfg.Tracer()
	return func(call *interceptors.UnaryCall, next gorawronion.Next[any]) (any, error) {
		ctx, span := startRPC(call.Ctx, cfg, tracer, call.Info.FullMethod)
		defer span.End()
		call.Ctx = ctx

		resp, err := next()
		recordStatus(span, err)
		return resp, err
	}
}

// Stream is the stream counterpart of Unary. The stream seen by the rest of
// the pipeline carries the span context.
func Stream(cfg *Config) interceptors.StreamHandler {
	if cfg == nil {
		return func(_ *interceptors.StreamCall, next gorawronion.Next[struct{}]) (struct{}, error) { return next() }
	}
	tracer := cfg.Tracer()
	return func(call *interceptors.StreamCall, next gorawronion.Next[struct{}]) (struct{}, error) {
		ctx, span := startRPC(call.Context(), cfg, tracer, call.Info.FullMethod)
		defer span.End()
		call.WithContext(ctx)

		_, err := next()
		recordStatus(span, err)
		return struct{}{}, err
	}
}

func startRPC(ctx context.Context, cfg *Config, tracer trace.Tracer, fullMethod string) (context.Context, trace.Span) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		md = metadata.MD{}
	}
	ctx = cfg.Propagator().Extract(ctx, metadataCarrier(md))

	service, method := splitFullMethod(fullMethod)
	return tracer.Start(ctx, fullMethod,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("rpc.system", "grpc"),
			attribute.String("rpc.service", service),
			attribute.String("rpc.method", method),
		),
	)
}

// metadataCarrier adapts gRPC [metadata.MD] to the OTel
// [propagation.TextMapCarrier] interface.
type metadataCarrier metadata.MD

func (mc metadataCarrier) Get(key string) string {
	vals := metadata.MD(mc).Get(key)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

func (mc metadataCarrier) Set(key, value string) {
	metadata.MD(mc).Set(key, value)
}

func (mc metadataCarrier) Keys() []string {
	keys := make([]string, 0, len(mc))
	for k := range mc {
		keys = append(keys, k)
	}
	return keys
}

// splitFullMethod splits "/service/method" into ("service", "method").
func splitFullMethod(fullMethod string) (string, string) {
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	service, method, ok := strings.Cut(fullMethod, "/")
	if !ok {
		return fullMethod, ""
	}
	return service, method
}

// recordStatus sets the span status and records the gRPC status code.
func recordStatus(span trace.Span, err error) {
	st, _ := grpcStatus.FromError(err)
	span.SetAttributes(attribute.String("rpc.grpc.status_code", st.Code().String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, st.Message())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}
