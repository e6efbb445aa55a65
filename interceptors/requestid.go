package interceptors

import (
	"context"

	gorawronion "github.com/Keksclan/goRawrOnion"
	"github.com/Keksclan/goRawrOnion/contextx"
	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"
)

// RequestIDHeader is the metadata key read for a caller-supplied request ID.
const RequestIDHeader = "x-request-id"

// ensureRequestID returns the context enriched with a request ID if one is not
// already present. An ID sent by the caller in RequestIDHeader is reused.
func ensureRequestID(ctx context.Context) context.Context {
	if contextx.RequestIDFromContext(ctx) != "" {
		return ctx
	}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(RequestIDHeader); len(ids) > 0 && ids[0] != "" {
			return contextx.WithRequestID(ctx, ids[0])
		}
	}
	return contextx.WithRequestID(ctx, uuid.NewString())
}

// RequestIDUnary returns a unary handler that ensures a request ID is present
// in the context seen by the rest of the pipeline.
func RequestIDUnary() UnaryHandler {
	return func(call *UnaryCall, next gorawronion.Next[any]) (any, error) {
		call.Ctx = ensureRequestID(call.Ctx)
		return next()
	}
}

// RequestIDStream returns a stream handler that ensures a request ID is
// present in the stream context.
func RequestIDStream() StreamHandler {
	return func(call *StreamCall, next gorawronion.Next[struct{}]) (struct{}, error) {
		call.WithContext(ensureRequestID(call.Context()))
		return next()
	}
}
