package interceptors

import (
	gorawronion "github.com/Keksclan/goRawrOnion"
	"github.com/Keksclan/goRawrOnion/security"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// errBlocked is allocated once to avoid per-request allocations on the hot path.
var errBlocked = status.Error(codes.PermissionDenied, "blocked")

// IPBlockUnary returns a unary handler that stops the pipeline with
// PermissionDenied when the blocker rejects the client address.
func IPBlockUnary(b *security.IPBlocker) UnaryHandler {
	return func(call *UnaryCall, next gorawronion.Next[any]) (any, error) {
		md, _ := metadata.FromIncomingContext(call.Ctx)
		if !b.Evaluate(call.Ctx, md) {
			return nil, errBlocked
		}
		return next()
	}
}

// IPBlockStream is the stream counterpart of IPBlockUnary.
func IPBlockStream(b *security.IPBlocker) StreamHandler {
	return func(call *StreamCall, next gorawronion.Next[struct{}]) (struct{}, error) {
		ctx := call.Context()
		md, _ := metadata.FromIncomingContext(ctx)
		if !b.Evaluate(ctx, md) {
			return struct{}{}, errBlocked
		}
		return next()
	}
}
