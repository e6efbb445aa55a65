package interceptors

import (
	"context"

	gorawronion "github.com/Keksclan/goRawrOnion"
	"google.golang.org/grpc"
)

// ChainUnary composes unary handlers into a single interceptor. Handlers run
// in slice order and the RPC's method handler runs after the last one calls
// next. An empty slice yields a nil interceptor.
func ChainUnary(handlers []UnaryHandler) (grpc.UnaryServerInterceptor, error) {
	pipeline, err := gorawronion.Compose(handlers...)
	if err != nil {
		return nil, err
	}
	if len(handlers) == 0 {
		return nil, nil
	}

	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		call := &UnaryCall{Ctx: ctx, Req: req, Info: info}
		return pipeline(call, func() (any, error) {
			return handler(call.Ctx, call.Req)
		})
	}, nil
}

// ChainStream composes stream handlers into a single interceptor. Handlers
// run in slice order. An empty slice yields a nil interceptor.
func ChainStream(handlers []StreamHandler) (grpc.StreamServerInterceptor, error) {
	pipeline, err := gorawronion.Compose(handlers...)
	if err != nil {
		return nil, err
	}
	if len(handlers) == 0 {
		return nil, nil
	}

	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		call := &StreamCall{Srv: srv, Stream: ss, Info: info}
		_, err := pipeline(call, func() (struct{}, error) {
			return struct{}{}, handler(call.Srv, call.Stream)
		})
		return err
	}, nil
}

// FromUnaryInterceptor lifts a plain gRPC interceptor into a pipeline link.
// The context and request the interceptor forwards are stored on the call.
func FromUnaryInterceptor(ic grpc.UnaryServerInterceptor) UnaryHandler {
	return func(call *UnaryCall, next gorawronion.Next[any]) (any, error) {
		return ic(call.Ctx, call.Req, call.Info, func(ctx context.Context, req any) (any, error) {
			call.Ctx, call.Req = ctx, req
			return next()
		})
	}
}

// FromStreamInterceptor lifts a plain gRPC stream interceptor into a pipeline
// link.
func FromStreamInterceptor(ic grpc.StreamServerInterceptor) StreamHandler {
	return func(call *StreamCall, next gorawronion.Next[struct{}]) (struct{}, error) {
		err := ic(call.Srv, call.Stream, call.Info, func(srv any, ss grpc.ServerStream) error {
			call.Srv, call.Stream = srv, ss
			_, err := next()
			return err
		})
		return struct{}{}, err
	}
}
