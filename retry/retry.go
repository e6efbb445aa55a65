package retry

import (
	"context"
	"slices"
	"time"

	gorawronion "github.com/Keksclan/goRawrOnion"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Config controls the retry behaviour of [Do] and [Invoke].
type Config struct {
	// MaxAttempts is the maximum number of times fn is called (including the
	// first attempt). Values ≤ 1 mean no retries.
	MaxAttempts int

	// BaseDelay is the delay before the first retry. Subsequent retries use
	// exponential back-off: BaseDelay * 2^attempt.
	BaseDelay time.Duration

	// MaxDelay caps the computed back-off delay. Zero means no cap.
	MaxDelay time.Duration

	// Jitter adds randomness to the delay. A value of 0.2 means ±20 % of
	// the computed delay. Zero disables jitter.
	Jitter float64

	// RetryCodes lists the gRPC status codes that are considered retryable.
	// It is consulted only when RetryIf is nil.
	RetryCodes []codes.Code

	// RetryIf reports whether err is worth another attempt. When nil, errors
	// are retried if they carry a status code listed in RetryCodes.
	RetryIf func(err error) bool
}

func (cfg Config) retryable(err error) bool {
	if cfg.RetryIf != nil {
		return cfg.RetryIf(err)
	}
	st, ok := status.FromError(err)
	return ok && slices.Contains(cfg.RetryCodes, st.Code())
}

// Do calls fn up to cfg.MaxAttempts times, retrying while the returned error
// is retryable under cfg. Between attempts an exponential back-off delay
// (with optional jitter) is applied.
//
// The context is checked before every retry; if ctx is done the function
// returns immediately with the context error.
func Do[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(cfg.MaxAttempts, 1)

	for i := range attempts {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if i == attempts-1 || !cfg.retryable(err) {
			return zero, err
		}

		timer := time.NewTimer(backoff(cfg, i))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, nil
}

// Invoke runs the pipeline h with c, running the whole pipeline again on
// every retryable failure. A next continuation can only be called once per
// run, so retries always start from the first handler.
func Invoke[C, R any](ctx context.Context, cfg Config, h gorawronion.Handler[C, R], c C) (R, error) {
	return Do(ctx, cfg, func(context.Context) (R, error) {
		return gorawronion.Run(h, c)
	})
}

// UnaryClientInterceptor retries unary client calls according to cfg.
func UnaryClientInterceptor(cfg Config) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		_, err := Do(ctx, cfg, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, invoker(ctx, method, req, reply, cc, opts...)
		})
		return err
	}
}
