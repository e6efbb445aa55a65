package logging

import (
	"time"

	gorawronion "github.com/Keksclan/goRawrOnion"
	"github.com/Keksclan/goRawrOnion/contextx"
	"github.com/Keksclan/goRawrOnion/interceptors"
	"go.uber.org/zap"
	"google.golang.org/grpc/status"
)

// Unary returns a unary handler that logs every RPC with its method, status
// code and duration. Server failures log at Error, other failures and slow
// calls at Warn. A nil logger yields a passthrough.
func Unary(logger *zap.Logger, opts ...Option) interceptors.UnaryHandler {
	if logger == nil {
		return func(_ *interceptors.UnaryCall, next gorawronion.Next[any]) (any, error) { return next() }
	}
	o := buildOptions(opts)
	return func(call *interceptors.UnaryCall, next gorawronion.Next[any]) (any, error) {
		start := time.Now()
		resp, err := next()
		logRPC(logger, o, call, call.Info.FullMethod, err, time.Since(start))
		return resp, err
	}
}

// Stream is the stream counterpart of Unary.
func Stream(logger *zap.Logger, opts ...Option) interceptors.StreamHandler {
	if logger == nil {
		return func(_ *interceptors.StreamCall, next gorawronion.Next[struct{}]) (struct{}, error) { return next() }
	}
	o := buildOptions(opts)
	return func(call *interceptors.StreamCall, next gorawronion.Next[struct{}]) (struct{}, error) {
		start := time.Now()
		_, err := next()
		logRPC(logger, o, call, call.Info.FullMethod, err, time.Since(start))
		return struct{}{}, err
	}
}

func logRPC(logger *zap.Logger, o options, call contextx.Carrier, method string, err error, d time.Duration) {
	fields := append(requestFields(call),
		zap.String("method", method),
		zap.String("code", status.Code(err).String()),
		zap.Duration("duration", d),
	)
	if group := contextx.GroupFromContext(call.Context()); group != "" {
		fields = append(fields, zap.String("group", group))
	}

	switch {
	case interceptors.IsServerFailure(err):
		logger.Error("rpc failed", append(fields, zap.Error(err))...)
	case err != nil:
		logger.Warn("rpc rejected", append(fields, zap.Error(err))...)
	case o.isSlow(d):
		logger.Warn("slow rpc", fields...)
	default:
		logger.Debug("rpc", fields...)
	}
}
