package interceptors

import (
	"context"

	gorawronion "github.com/Keksclan/goRawrOnion"
	"github.com/Keksclan/goRawrOnion/contextx"
	"github.com/Keksclan/goRawrOnion/policy"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// AuthFunc is a user-supplied callback that authenticates a gRPC request.
// It receives the request context, the full method name, and the incoming
// metadata. On success it returns a (possibly enriched) context; on failure
// it returns an error.
//
// The library does NOT parse tokens; that is the responsibility of the
// AuthFunc implementation.
type AuthFunc func(ctx context.Context, fullMethod string, md metadata.MD) (context.Context, error)

// errUnauthenticated is allocated once to avoid per-request allocations on the hot path.
var errUnauthenticated = status.Error(codes.Unauthenticated, "unauthenticated")

// authError returns the original error if it is already a gRPC status error,
// otherwise wraps it as codes.Unauthenticated.
func authError(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	return errUnauthenticated
}

// AuthUnary returns a unary handler that calls fn and continues with the
// context it returns. The pipeline stops when fn fails.
func AuthUnary(fn AuthFunc) UnaryHandler {
	return func(call *UnaryCall, next gorawronion.Next[any]) (any, error) {
		md, _ := metadata.FromIncomingContext(call.Ctx)
		ctx, err := fn(call.Ctx, call.Info.FullMethod, md)
		if err != nil {
			return nil, authError(err)
		}
		call.Ctx = ctx
		return next()
	}
}

// AuthStream returns a stream handler that calls fn and continues with the
// context it returns.
func AuthStream(fn AuthFunc) StreamHandler {
	return func(call *StreamCall, next gorawronion.Next[struct{}]) (struct{}, error) {
		ctx := call.Context()
		md, _ := metadata.FromIncomingContext(ctx)
		newCtx, err := fn(ctx, call.Info.FullMethod, md)
		if err != nil {
			return struct{}{}, authError(err)
		}
		call.WithContext(newCtx)
		return next()
	}
}

// requiresActor reports whether the policy of fullMethod demands an actor
// that ctx does not carry.
func requiresActor(ctx context.Context, r *policy.Resolver, fullMethod string) bool {
	m, ok := r.Match(fullMethod)
	if !ok || m.Policy == nil || !m.Policy.AuthRequired {
		return false
	}
	_, ok = contextx.ActorFromContext(ctx)
	return !ok
}

// RequireActorUnary rejects calls to methods whose policy sets AuthRequired
// with Unauthenticated unless an earlier handler stored an Actor in the
// context.
func RequireActorUnary(r *policy.Resolver) UnaryHandler {
	return func(call *UnaryCall, next gorawronion.Next[any]) (any, error) {
		if requiresActor(call.Ctx, r, call.Info.FullMethod) {
			return nil, errUnauthenticated
		}
		return next()
	}
}

// RequireActorStream is the stream counterpart of RequireActorUnary.
func RequireActorStream(r *policy.Resolver) StreamHandler {
	return func(call *StreamCall, next gorawronion.Next[struct{}]) (struct{}, error) {
		if requiresActor(call.Context(), r, call.Info.FullMethod) {
			return struct{}{}, errUnauthenticated
		}
		return next()
	}
}
