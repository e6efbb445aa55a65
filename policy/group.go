// Package policy maps route names (gRPC full methods or HTTP paths) to
// per-group settings used by the rate limit, timeout and cache handlers.
package policy

import (
	"regexp"
	"time"
)

// RateLimitRule describes a rate-limiting policy for a group of routes.
type RateLimitRule struct {
	// Rate is the maximum number of requests allowed within Window.
	Rate int
	// Window is the time window for the rate limit.
	Window time.Duration
}

// PerSecond converts the rule into a token refill rate.
func (r RateLimitRule) PerSecond() float64 {
	if r.Window <= 0 {
		return float64(r.Rate)
	}
	return float64(r.Rate) / r.Window.Seconds()
}

// CacheRule enables response caching for a group.
type CacheRule struct {
	TTL time.Duration
}

// Policy holds the configuration that applies to a matched group.
type Policy struct {
	RateLimit    *RateLimitRule
	Cache        *CacheRule
	Timeout      time.Duration
	AuthRequired bool
}

// matchKind distinguishes the three matching strategies. Lower values win.
type matchKind int

const (
	kindExact matchKind = iota
	kindPrefix
	kindRegex
)

// rule is a single matching rule inside a group.
type rule struct {
	kind    matchKind
	pattern string
	re      *regexp.Regexp
}

// GroupBuilder constructs a named route group with one or more matching rules
// and a policy.
type GroupBuilder struct {
	name   string
	rules  []rule
	policy *Policy
}

// Group starts building a new group with the given name.
func Group(name string) *GroupBuilder {
	return &GroupBuilder{name: name}
}

// Exact matches route exactly.
func (g *GroupBuilder) Exact(route string) *GroupBuilder {
	g.rules = append(g.rules, rule{kind: kindExact, pattern: route})
	return g
}

// Prefix matches every route starting with prefix.
func (g *GroupBuilder) Prefix(prefix string) *GroupBuilder {
	g.rules = append(g.rules, rule{kind: kindPrefix, pattern: prefix})
	return g
}

// Regex matches routes against expr. An invalid expression panics.
func (g *GroupBuilder) Regex(expr string) *GroupBuilder {
	g.rules = append(g.rules, rule{kind: kindRegex, pattern: expr, re: regexp.MustCompile(expr)})
	return g
}

// Policy attaches p to the group.
func (g *GroupBuilder) Policy(p Policy) *GroupBuilder {
	g.policy = &p
	return g
}
