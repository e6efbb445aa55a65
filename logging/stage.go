package logging

import (
	"time"

	gorawronion "github.com/Keksclan/goRawrOnion"
	"go.uber.org/zap"
)

// Stage returns a handler that logs each run of the rest of the pipeline
// under name. A nil logger yields a passthrough.
func Stage[C, R any](logger *zap.Logger, name string, opts ...Option) gorawronion.Handler[C, R] {
	if logger == nil {
		return func(_ C, next gorawronion.Next[R]) (R, error) { return next() }
	}
	o := buildOptions(opts)
	logger = logger.With(zap.String("stage", name))

	return func(c C, next gorawronion.Next[R]) (R, error) {
		start := time.Now()
		res, err := next()
		duration := time.Since(start)

		fields := append(requestFields(c), zap.Duration("duration", duration))
		switch {
		case err != nil:
			logger.Error("stage failed", append(fields, zap.Error(err))...)
		case o.isSlow(duration):
			logger.Warn("slow stage", fields...)
		default:
			logger.Debug("stage done", fields...)
		}
		return res, err
	}
}
