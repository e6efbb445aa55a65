// Package logging writes structured zap logs for pipeline runs. Stage logs
// any pipeline; Unary and Stream log gRPC calls. Successful runs go to
// Debug to keep logs quiet, slow runs to Warn, failures to Warn or Error.
package logging

import (
	"fmt"
	"time"

	"github.com/Keksclan/goRawrOnion/contextx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultSlowThreshold is the duration above which a successful run is
// logged at Warn.
const DefaultSlowThreshold = time.Second

// Config describes how to build a logger.
type Config struct {
	// Level is a zap level name such as "debug" or "info". Default "info".
	Level string `env:"LEVEL" envDefault:"info"`
	// Format is "json" or "console". Default "json".
	Format string `env:"FORMAT" envDefault:"json"`
	// Development enables development mode: stack traces on Warn and
	// DPanic panicking.
	Development bool `env:"DEVELOPMENT"`
}

// New builds a logger from cfg.
func New(cfg Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("logging: invalid level %q: %w", cfg.Level, err)
		}
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	switch cfg.Format {
	case "", "json":
		zc.Encoding = "json"
	case "console":
		zc.Encoding = "console"
	default:
		return nil, fmt.Errorf("logging: unknown format %q", cfg.Format)
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc.Build()
}

// Option configures the logging handlers.
type Option func(*options)

type options struct {
	slow time.Duration
}

// WithSlowThreshold sets the duration above which a successful run is
// logged at Warn. Zero disables slow logging.
func WithSlowThreshold(d time.Duration) Option {
	return func(o *options) { o.slow = d }
}

func buildOptions(opts []Option) options {
	o := options{slow: DefaultSlowThreshold}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func (o options) isSlow(d time.Duration) bool {
	return o.slow > 0 && d > o.slow
}

// requestFields returns the request ID field when c carries one.
func requestFields(c any) []zap.Field {
	carrier, ok := c.(contextx.Carrier)
	if !ok {
		return nil
	}
	ctx := carrier.Context()
	if ctx == nil {
		return nil
	}
	if id := contextx.RequestIDFromContext(ctx); id != "" {
		return []zap.Field{zap.String("request_id", id)}
	}
	return nil
}
