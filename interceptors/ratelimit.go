package interceptors

import (
	"sync"

	gorawronion "github.com/Keksclan/goRawrOnion"
	"github.com/Keksclan/goRawrOnion/policy"
	"github.com/Keksclan/goRawrOnion/ratelimit"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// errRateLimited is allocated once to avoid per-request allocations on the hot path.
var errRateLimited = status.Error(codes.ResourceExhausted, "rate limit exceeded")

// rateLimitState holds the global limiter, an optional policy resolver, and
// the per-group limiters created lazily from resolved policies.
type rateLimitState struct {
	global   *ratelimit.Limiter
	resolver *policy.Resolver

	mu     sync.Mutex
	groups map[string]*ratelimit.Limiter
}

func newRateLimitState(l *ratelimit.Limiter, r *policy.Resolver) *rateLimitState {
	return &rateLimitState{global: l, resolver: r, groups: make(map[string]*ratelimit.Limiter)}
}

// limiterFor returns the limiter of the group fullMethod resolves to when
// that group has a RateLimit rule, and the global limiter otherwise. It
// returns nil when neither applies.
func (s *rateLimitState) limiterFor(fullMethod string) *ratelimit.Limiter {
	m, ok := s.resolver.Match(fullMethod)
	if !ok || m.Policy == nil || m.Policy.RateLimit == nil {
		return s.global
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.groups[m.Group]; ok {
		return l
	}
	rl := m.Policy.RateLimit
	l := ratelimit.NewLimiter(rl.PerSecond(), rl.Rate)
	s.groups[m.Group] = l
	return l
}

func (s *rateLimitState) allow(fullMethod string) bool {
	l := s.limiterFor(fullMethod)
	return l == nil || l.Allow()
}

// RateLimitUnary returns a unary handler that stops the pipeline with
// ResourceExhausted when the applicable limiter is exhausted. Methods that
// resolve to a group with a RateLimit rule use that group's limiter; all
// others use l. A nil l leaves unmatched methods unlimited.
func RateLimitUnary(l *ratelimit.Limiter, r *policy.Resolver) UnaryHandler {
	st := newRateLimitState(l, r)
	return func(call *UnaryCall, next gorawronion.Next[any]) (any, error) {
		if !st.allow(call.Info.FullMethod) {
			return nil, errRateLimited
		}
		return next()
	}
}

// RateLimitStream is the stream counterpart of RateLimitUnary.
func RateLimitStream(l *ratelimit.Limiter, r *policy.Resolver) StreamHandler {
	st := newRateLimitState(l, r)
	return func(call *StreamCall, next gorawronion.Next[struct{}]) (struct{}, error) {
		if !st.allow(call.Info.FullMethod) {
			return struct{}{}, errRateLimited
		}
		return next()
	}
}
