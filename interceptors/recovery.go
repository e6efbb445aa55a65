package interceptors

import (
	"runtime/debug"

	gorawronion "github.com/Keksclan/goRawrOnion"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// errInternal is allocated once to avoid per-request allocations on the hot path.
var errInternal = status.Error(codes.Internal, "internal server error")

// RecoveryUnary returns a unary handler that recovers from panics further down
// the pipeline and returns an Internal gRPC error instead of crashing the
// process. The panic is logged when logger is non-nil.
func RecoveryUnary(logger *zap.Logger) UnaryHandler {
	return func(call *UnaryCall, next gorawronion.Next[any]) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logPanic(logger, call.Info.FullMethod, r)
				resp = nil
				err = errInternal
			}
		}()
		return next()
	}
}

// RecoveryStream returns a stream handler that recovers from panics and
// returns an Internal gRPC error.
func RecoveryStream(logger *zap.Logger) StreamHandler {
	return func(call *StreamCall, next gorawronion.Next[struct{}]) (_ struct{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logPanic(logger, call.Info.FullMethod, r)
				err = errInternal
			}
		}()
		return next()
	}
}

func logPanic(logger *zap.Logger, method string, r any) {
	if logger == nil {
		return
	}
	logger.Error("panic recovered",
		zap.String("method", method),
		zap.Any("panic", r),
		zap.String("stack", string(debug.Stack())),
	)
}
