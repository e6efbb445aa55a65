package interceptors

import (
	"errors"

	gorawronion "github.com/Keksclan/goRawrOnion"
	"github.com/Keksclan/goRawrOnion/breaker"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// errCircuitOpen is allocated once to avoid per-request allocations on the hot path.
var errCircuitOpen = status.Error(codes.Unavailable, "circuit open")

// IsServerFailure reports whether err is a gRPC status that points at the
// server rather than the caller. Only these errors trip a breaker.
func IsServerFailure(err error) bool {
	if err == nil {
		return false
	}
	switch status.Code(err) {
	case codes.Unknown, codes.Internal, codes.Unavailable, codes.DeadlineExceeded, codes.DataLoss:
		return true
	}
	return false
}

func breakerError(err error) error {
	if errors.Is(err, breaker.ErrOpen) {
		return errCircuitOpen
	}
	return err
}

// BreakerUnary returns a unary handler that fails fast with Unavailable
// while b is open. Server failures, as classified by IsServerFailure, are
// reported to b.
func BreakerUnary(b *breaker.Breaker) UnaryHandler {
	guard := breaker.Guard[*UnaryCall, any](b, IsServerFailure)
	return func(call *UnaryCall, next gorawronion.Next[any]) (any, error) {
		resp, err := guard(call, next)
		return resp, breakerError(err)
	}
}

// BreakerStream is the stream counterpart of BreakerUnary.
func BreakerStream(b *breaker.Breaker) StreamHandler {
	guard := breaker.Guard[*StreamCall, struct{}](b, IsServerFailure)
	return func(call *StreamCall, next gorawronion.Next[struct{}]) (struct{}, error) {
		_, err := guard(call, next)
		return struct{}{}, breakerError(err)
	}
}
