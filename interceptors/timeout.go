package interceptors

import (
	"context"

	gorawronion "github.com/Keksclan/goRawrOnion"
	"github.com/Keksclan/goRawrOnion/policy"
)

// TimeoutUnary returns a unary handler that bounds the rest of the pipeline
// with the Timeout of the group the method resolves to. Methods without a
// timeout policy continue unchanged.
func TimeoutUnary(r *policy.Resolver) UnaryHandler {
	return func(call *UnaryCall, next gorawronion.Next[any]) (any, error) {
		m, ok := r.Match(call.Info.FullMethod)
		if !ok || m.Policy == nil || m.Policy.Timeout <= 0 {
			return next()
		}
		ctx, cancel := context.WithTimeout(call.Ctx, m.Policy.Timeout)
		defer cancel()
		call.Ctx = ctx
		return next()
	}
}

// TimeoutStream is the stream counterpart of TimeoutUnary. The deadline
// applies to the stream's context for the whole call.
func TimeoutStream(r *policy.Resolver) StreamHandler {
	return func(call *StreamCall, next gorawronion.Next[struct{}]) (struct{}, error) {
		m, ok := r.Match(call.Info.FullMethod)
		if !ok || m.Policy == nil || m.Policy.Timeout <= 0 {
			return next()
		}
		ctx, cancel := context.WithTimeout(call.Context(), m.Policy.Timeout)
		defer cancel()
		call.WithContext(ctx)
		return next()
	}
}
