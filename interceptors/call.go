// Package interceptors adapts onion pipelines to gRPC server interceptors and
// provides the handlers the Server installs: recovery, request IDs,
// authentication, IP blocking, rate limiting, circuit breaking and response
// caching.
package interceptors

import (
	"context"

	gorawronion "github.com/Keksclan/goRawrOnion"
	"google.golang.org/grpc"
)

// UnaryCall is the value shared by every handler of a unary pipeline run.
// Handlers may replace Ctx and Req before calling next; the gRPC method
// handler receives the values present when the pipeline reaches it.
type UnaryCall struct {
	Ctx  context.Context
	Req  any
	Info *grpc.UnaryServerInfo
}

// Context returns the call's context.
func (c *UnaryCall) Context() context.Context { return c.Ctx }

// WithContext replaces the call's context.
func (c *UnaryCall) WithContext(ctx context.Context) { c.Ctx = ctx }

// UnaryHandler is a pipeline link for unary RPCs.
type UnaryHandler = gorawronion.Handler[*UnaryCall, any]

// StreamCall is the value shared by every handler of a stream pipeline run.
type StreamCall struct {
	Srv    any
	Stream grpc.ServerStream
	Info   *grpc.StreamServerInfo
}

// StreamHandler is a pipeline link for streaming RPCs.
type StreamHandler = gorawronion.Handler[*StreamCall, struct{}]

// Context returns the context of the call's stream.
func (c *StreamCall) Context() context.Context {
	return c.Stream.Context()
}

// WithContext replaces the stream so that its Context method returns ctx.
func (c *StreamCall) WithContext(ctx context.Context) {
	if w, ok := c.Stream.(*wrappedStream); ok {
		w.ctx = ctx
		return
	}
	c.Stream = &wrappedStream{ServerStream: c.Stream, ctx: ctx}
}

// wrappedStream overrides Context() to carry a derived context.
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context { return w.ctx }
