package server

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/Keksclan/goRawrOnion/breaker"
	"github.com/Keksclan/goRawrOnion/cache"
	"github.com/Keksclan/goRawrOnion/logging"
	"github.com/Keksclan/goRawrOnion/metrics"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every variable read by LoadEnv.
const EnvPrefix = "RAWR_"

// EnvConfig is the server configuration read from the environment.
type EnvConfig struct {
	Recovery  bool `env:"RECOVERY" envDefault:"true"`
	RequestID bool `env:"REQUEST_ID" envDefault:"true"`
	Health    bool `env:"HEALTH" envDefault:"true"`

	// RateLimitRPS zero disables the global rate limit.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"1"`

	// CacheL1Size zero disables the in-process cache.
	CacheL1Size   int64  `env:"CACHE_L1_SIZE"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`
	RedisPrefix   string `env:"REDIS_PREFIX"`

	// BreakerFailures zero disables the circuit breaker.
	BreakerFailures    int           `env:"BREAKER_FAILURES"`
	BreakerOpenTimeout time.Duration `env:"BREAKER_OPEN_TIMEOUT" envDefault:"30s"`

	Metrics          bool   `env:"METRICS"`
	MetricsNamespace string `env:"METRICS_NAMESPACE" envDefault:"onion"`

	// Logging is read from LOG_LEVEL, LOG_FORMAT and LOG_DEVELOPMENT.
	Logging    logging.Config `envPrefix:"LOG_"`
	SlowRPC    time.Duration  `env:"SLOW_RPC"`
	LogEnabled bool           `env:"LOG" envDefault:"true"`
}

// LoadEnv reads files into the process environment (".env" when none are
// given; missing files are ignored) and parses the RAWR_ variables.
func LoadEnv(files ...string) (EnvConfig, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return EnvConfig{}, fmt.Errorf("server: load %s: %w", f, err)
		}
	}

	var cfg EnvConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return EnvConfig{}, fmt.Errorf("server: parse environment: %w", err)
	}
	return cfg, nil
}

// Options turns the configuration into server options. It builds the logger,
// metrics recorder, breaker and caches the configuration asks for.
func (c EnvConfig) Options() ([]Option, error) {
	var opts []Option
	if c.Recovery {
		opts = append(opts, WithRecovery())
	}
	if c.RequestID {
		opts = append(opts, WithRequestID())
	}
	if c.Health {
		opts = append(opts, WithHealth())
	}

	if c.LogEnabled {
		logger, err := logging.New(c.Logging)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithLogger(logger, c.SlowRPC))
	}

	if c.Metrics {
		rec, err := metrics.New(metrics.Options{Namespace: c.MetricsNamespace})
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithMetrics(rec))
	}

	if c.RateLimitRPS > 0 {
		opts = append(opts, WithRateLimitGlobal(c.RateLimitRPS, c.RateLimitBurst))
	}

	if c.BreakerFailures > 0 {
		opts = append(opts, WithBreaker(breaker.New(breaker.Config{
			FailureThreshold: c.BreakerFailures,
			OpenTimeout:      c.BreakerOpenTimeout,
		})))
	}

	if c.CacheL1Size > 0 {
		opts = append(opts, WithCacheL1(c.CacheL1Size))
	}
	if c.RedisAddr != "" {
		var l2opts []cache.L2Option
		if c.RedisPrefix != "" {
			l2opts = append(l2opts, cache.WithPrefix(c.RedisPrefix))
		}
		opts = append(opts, WithCacheL2(cache.NewL2(c.RedisAddr, c.RedisPassword, c.RedisDB, l2opts...)))
	}
	return opts, nil
}
