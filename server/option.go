package server

import (
	"time"

	"github.com/Keksclan/goRawrOnion/breaker"
	"github.com/Keksclan/goRawrOnion/cache"
	"github.com/Keksclan/goRawrOnion/interceptors"
	"github.com/Keksclan/goRawrOnion/metrics"
	"github.com/Keksclan/goRawrOnion/policy"
	"github.com/Keksclan/goRawrOnion/ratelimit"
	"github.com/Keksclan/goRawrOnion/security"
	"github.com/Keksclan/goRawrOnion/tracing"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// config holds the configuration assembled via functional options. The
// handler stacks are built from it once every option has been applied, so
// options may be passed in any order.
type config struct {
	recovery  bool
	requestID bool
	health    bool

	logger  *zap.Logger
	slowRPC time.Duration
	metrics *metrics.Recorder
	tracing *tracing.Config

	ipBlocker *security.IPBlocker
	auth      interceptors.AuthFunc
	resolver  *policy.Resolver
	limiter   *ratelimit.Limiter
	breaker   *breaker.Breaker

	l1Size    int64
	l2        *cache.L2
	cache     cache.Cache
	cacheRPCs bool

	unary  []prioritized[interceptors.UnaryHandler]
	stream []prioritized[interceptors.StreamHandler]

	grpcOpts []grpc.ServerOption
}

type prioritized[T any] struct {
	order int
	h     T
}

// Option configures a Server.
type Option func(*config)

// WithUnary adds unary pipeline handlers at PriorityUser.
func WithUnary(handlers ...interceptors.UnaryHandler) Option {
	return WithUnaryAt(PriorityUser, handlers...)
}

// WithUnaryAt adds unary pipeline handlers at the given priority.
func WithUnaryAt(order int, handlers ...interceptors.UnaryHandler) Option {
	return func(c *config) {
		for _, h := range handlers {
			c.unary = append(c.unary, prioritized[interceptors.UnaryHandler]{order, h})
		}
	}
}

// WithStream adds stream pipeline handlers at PriorityUser.
func WithStream(handlers ...interceptors.StreamHandler) Option {
	return WithStreamAt(PriorityUser, handlers...)
}

// WithStreamAt adds stream pipeline handlers at the given priority.
func WithStreamAt(order int, handlers ...interceptors.StreamHandler) Option {
	return func(c *config) {
		for _, h := range handlers {
			c.stream = append(c.stream, prioritized[interceptors.StreamHandler]{order, h})
		}
	}
}

// WithUnaryInterceptor adds a plain gRPC unary interceptor at PriorityUser.
func WithUnaryInterceptor(i grpc.UnaryServerInterceptor) Option {
	return WithUnary(interceptors.FromUnaryInterceptor(i))
}

// WithStreamInterceptor adds a plain gRPC stream interceptor at PriorityUser.
func WithStreamInterceptor(i grpc.StreamServerInterceptor) Option {
	return WithStream(interceptors.FromStreamInterceptor(i))
}

// WithRecovery installs panic recovery so that a panic inside a handler
// returns codes.Internal instead of crashing the process.
func WithRecovery() Option {
	return func(c *config) { c.recovery = true }
}

// WithRequestID ensures every call carries a request ID.
func WithRequestID() Option {
	return func(c *config) { c.requestID = true }
}

// WithLogger logs every RPC and recovered panic to logger. RPCs slower than
// slow log at Warn; zero keeps the logging package default.
func WithLogger(logger *zap.Logger, slow time.Duration) Option {
	return func(c *config) {
		c.logger = logger
		c.slowRPC = slow
	}
}

// WithMetrics records RPC metrics into rec and serves them from
// Server.MetricsHandler.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(c *config) { c.metrics = rec }
}

// WithOpenTelemetry creates a server span for every RPC.
func WithOpenTelemetry(cfg tracing.Config) Option {
	return func(c *config) { c.tracing = &cfg }
}

// WithIPBlocker rejects calls from addresses b does not allow.
func WithIPBlocker(b *security.IPBlocker) Option {
	return func(c *config) { c.ipBlocker = b }
}

// WithAuth authenticates every call with fn.
func WithAuth(fn interceptors.AuthFunc) Option {
	return func(c *config) { c.auth = fn }
}

// WithPolicies resolves each method to a policy group. Group rate limits and
// timeouts take effect for the matching unary and stream methods, cache
// rules for the matching unary methods, and groups with AuthRequired
// reject calls that carry no authenticated Actor.
func WithPolicies(r *policy.Resolver) Option {
	return func(c *config) { c.resolver = r }
}

// WithRateLimitGlobal limits every method without a group rate limit to rps
// requests per second with the given burst.
func WithRateLimitGlobal(rps float64, burst int) Option {
	return func(c *config) { c.limiter = ratelimit.NewLimiter(rps, burst) }
}

// WithBreaker fails calls fast with Unavailable while b is open.
func WithBreaker(b *breaker.Breaker) Option {
	return func(c *config) { c.breaker = b }
}

// WithCacheL1 creates an in-process cache holding up to size entries.
func WithCacheL1(size int64) Option {
	return func(c *config) { c.l1Size = size }
}

// WithCacheL2 adds a Redis layer behind the L1 cache, or uses Redis alone
// when no L1 is configured.
func WithCacheL2(l2 *cache.L2) Option {
	return func(c *config) { c.l2 = l2 }
}

// WithCache uses store as the server cache instead of building one.
func WithCache(store cache.Cache) Option {
	return func(c *config) { c.cache = store }
}

// WithResponseCache serves unary responses from the server cache for
// methods whose policy group has a Cache rule. It needs a cache and
// WithPolicies.
func WithResponseCache() Option {
	return func(c *config) { c.cacheRPCs = true }
}

// WithHealth registers the standard gRPC health service. Server.Health
// returns it for status updates.
func WithHealth() Option {
	return func(c *config) { c.health = true }
}

// WithGRPCOptions passes extra options to grpc.NewServer.
func WithGRPCOptions(opts ...grpc.ServerOption) Option {
	return func(c *config) { c.grpcOpts = append(c.grpcOpts, opts...) }
}
