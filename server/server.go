// Package server assembles a gRPC server whose unary and stream interceptors
// are composed onion pipelines. Built-in handlers (recovery, request IDs,
// tracing, logging, metrics, IP blocking, authentication, rate limiting,
// timeouts, circuit breaking, response caching) are switched on with
// functional options and run in a fixed priority order; user handlers run
// after them.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	gorawronion "github.com/Keksclan/goRawrOnion"
	"github.com/Keksclan/goRawrOnion/cache"
	"github.com/Keksclan/goRawrOnion/contextx"
	"github.com/Keksclan/goRawrOnion/interceptors"
	"github.com/Keksclan/goRawrOnion/internal/core"
	"github.com/Keksclan/goRawrOnion/logging"
	"github.com/Keksclan/goRawrOnion/metrics"
	"github.com/Keksclan/goRawrOnion/tracing"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ErrResponseCache is returned by NewServer when WithResponseCache is used
// without a cache or without policies.
var ErrResponseCache = errors.New("server: response cache needs a cache and policies")

// Server is a composable wrapper around a [grpc.Server].
//
// After construction the underlying gRPC server is available through
// [Server.GRPC] so that service implementations can be registered normally:
//
//	srv, err := server.NewServer(server.DefaultOptions()...)
//	pb.RegisterMyServiceServer(srv.GRPC(), &myImpl{})
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	cache      cache.Cache
	metrics    *metrics.Recorder
	closers    []func() error
}

// NewServer creates a Server by applying opts, composing the handler
// pipelines in priority order and wiring them into [grpc.NewServer].
// Execution order is determined by the Priority constants, not by the
// order options are passed.
//
// Example:
//
//	srv, err := server.NewServer(
//		server.WithRecovery(),
//		server.WithRateLimitGlobal(500, 100),
//		server.WithAuth(myAuthFunc),
//		server.WithCacheL1(10_000),
//	)
func NewServer(opts ...Option) (*Server, error) {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}

	s := &Server{metrics: cfg.metrics}
	store, err := s.buildCache(&cfg)
	if err != nil {
		return nil, err
	}
	s.cache = store

	if cfg.cacheRPCs && (store == nil || cfg.resolver == nil) {
		_ = s.Close()
		return nil, ErrResponseCache
	}

	unary, stream := cfg.stacks(store)
	ui, err := interceptors.ChainUnary(unary.Build())
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	si, err := interceptors.ChainStream(stream.Build())
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	serverOpts := append(core.BuildServerOptions(ui, si), cfg.grpcOpts...)
	s.grpcServer = grpc.NewServer(serverOpts...)

	if cfg.health {
		s.health = health.NewServer()
		healthpb.RegisterHealthServer(s.grpcServer, s.health)
	}
	return s, nil
}

// buildCache returns the cache selected by the options, if any.
func (s *Server) buildCache(cfg *config) (cache.Cache, error) {
	if cfg.cache != nil {
		return cfg.cache, nil
	}
	if cfg.l2 != nil {
		s.closers = append(s.closers, cfg.l2.Close)
	}
	if cfg.l1Size <= 0 {
		if cfg.l2 != nil {
			return cfg.l2, nil
		}
		return nil, nil
	}

	l1, err := cache.NewL1(cfg.l1Size)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.closers = append(s.closers, func() error { l1.Close(); return nil })
	if cfg.l2 != nil {
		return cache.NewTiered(l1, cfg.l2), nil
	}
	return l1, nil
}

// stacks collects the enabled handlers with their priorities.
func (c *config) stacks(store cache.Cache) (*core.Stack[interceptors.UnaryHandler], *core.Stack[interceptors.StreamHandler]) {
	var unary core.Stack[interceptors.UnaryHandler]
	var stream core.Stack[interceptors.StreamHandler]
	add := func(order int, u interceptors.UnaryHandler, s interceptors.StreamHandler) {
		if u != nil {
			unary.Add(order, u)
		}
		if s != nil {
			stream.Add(order, s)
		}
	}

	var logOpts []logging.Option
	if c.slowRPC > 0 {
		logOpts = append(logOpts, logging.WithSlowThreshold(c.slowRPC))
	}

	if c.recovery {
		add(PriorityRecovery, interceptors.RecoveryUnary(c.logger), interceptors.RecoveryStream(c.logger))
	}
	if c.requestID {
		add(PriorityRequestID, interceptors.RequestIDUnary(), interceptors.RequestIDStream())
	}
	if c.resolver != nil {
		add(PriorityGroup, c.groupUnary(), c.groupStream())
	}
	if c.tracing != nil {
		add(PriorityTracing, tracing.Unary(c.tracing), tracing.Stream(c.tracing))
	}
	if c.logger != nil {
		add(PriorityLogging, logging.Unary(c.logger, logOpts...), logging.Stream(c.logger, logOpts...))
	}
	if c.metrics != nil {
		add(PriorityMetrics, metrics.Unary(c.metrics), metrics.Stream(c.metrics))
	}
	if c.ipBlocker != nil {
		add(PriorityIPBlock, interceptors.IPBlockUnary(c.ipBlocker), interceptors.IPBlockStream(c.ipBlocker))
	}
	if c.auth != nil {
		add(PriorityAuth, interceptors.AuthUnary(c.auth), interceptors.AuthStream(c.auth))
	}
	if c.resolver != nil {
		add(PriorityRequireActor, interceptors.RequireActorUnary(c.resolver), interceptors.RequireActorStream(c.resolver))
	}
	if c.limiter != nil || c.resolver != nil {
		add(PriorityRateLimit, interceptors.RateLimitUnary(c.limiter, c.resolver), interceptors.RateLimitStream(c.limiter, c.resolver))
	}
	if c.resolver != nil {
		add(PriorityTimeout, interceptors.TimeoutUnary(c.resolver), interceptors.TimeoutStream(c.resolver))
	}
	if c.breaker != nil {
		add(PriorityBreaker, interceptors.BreakerUnary(c.breaker), interceptors.BreakerStream(c.breaker))
	}
	if c.cacheRPCs && store != nil && c.resolver != nil {
		add(PriorityCache, interceptors.CacheUnary(store, c.resolver), nil)
	}

	for _, p := range c.unary {
		unary.Add(p.order, p.h)
	}
	for _, p := range c.stream {
		stream.Add(p.order, p.h)
	}
	return &unary, &stream
}

// groupUnary stores the policy group the method resolves to in the context.
func (c *config) groupUnary() interceptors.UnaryHandler {
	return func(call *interceptors.UnaryCall, next gorawronion.Next[any]) (any, error) {
		if m, ok := c.resolver.Match(call.Info.FullMethod); ok {
			call.Ctx = contextx.WithGroup(call.Ctx, m.Group)
		}
		return next()
	}
}

func (c *config) groupStream() interceptors.StreamHandler {
	return func(call *interceptors.StreamCall, next gorawronion.Next[struct{}]) (struct{}, error) {
		if m, ok := c.resolver.Match(call.Info.FullMethod); ok {
			call.WithContext(contextx.WithGroup(call.Context(), m.Group))
		}
		return next()
	}
}

// GRPC returns the underlying *grpc.Server so callers can register services.
func (s *Server) GRPC() *grpc.Server {
	return s.grpcServer
}

// Cache returns the cache configured via WithCacheL1, WithCacheL2 or
// WithCache. It returns nil if no cache was configured.
func (s *Server) Cache() cache.Cache {
	return s.cache
}

// Health returns the health service registered by WithHealth, or nil.
func (s *Server) Health() *health.Server {
	return s.health
}

// MetricsHandler returns an http.Handler that serves Prometheus metrics:
// the WithMetrics registry when set, the default registry otherwise.
func (s *Server) MetricsHandler() http.Handler {
	if s.metrics != nil {
		return s.metrics.Handler()
	}
	return promhttp.Handler()
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
// It returns the error that ended serving, or nil after a graceful stop.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	errc := make(chan error, 1)
	go func() { errc <- s.grpcServer.Serve(lis) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		s.grpcServer.GracefulStop()
		// Serve reports ErrServerStopped when the stop wins the race with
		// the start of serving.
		if err := <-errc; err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	}
}

// Close stops the gRPC server immediately and releases the caches the
// server created.
func (s *Server) Close() error {
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	s.closers = nil
	return errors.Join(errs...)
}
