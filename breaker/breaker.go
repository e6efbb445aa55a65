// Package breaker provides a minimal, thread-safe circuit breaker and a
// pipeline handler that guards the rest of a pipeline with it.
//
// States:
//   - Closed: requests flow normally; consecutive failures are counted.
//   - Open: requests are rejected; after OpenTimeout the breaker moves to HalfOpen.
//   - HalfOpen: up to HalfOpenMaxSuccess probes may be in flight; enough
//     consecutive successes close the breaker, any failure reopens it.
package breaker

import (
	"sync"
	"time"
)

// State represents the current circuit breaker state.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds the circuit breaker parameters. Zero fields take the
// defaults applied by New.
type Config struct {
	// FailureThreshold is the number of consecutive failures in Closed state
	// before the breaker trips to Open. Default 5.
	FailureThreshold int

	// OpenTimeout is how long the breaker stays Open before transitioning
	// to HalfOpen. Default 30s.
	OpenTimeout time.Duration

	// HalfOpenMaxSuccess is the number of consecutive successes required in
	// HalfOpen state to close the breaker again. It also bounds the number
	// of probes in flight. Default 1.
	HalfOpenMaxSuccess int

	// OnStateChange, if set, is called after every transition. It runs with
	// the breaker unlocked.
	OnStateChange func(from, to State)
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	if c.HalfOpenMaxSuccess <= 0 {
		c.HalfOpenMaxSuccess = 1
	}
	return c
}

// Breaker is a minimal circuit breaker. All methods are safe for concurrent use.
type Breaker struct {
	mu sync.Mutex

	cfg Config

	state     State
	failures  int // consecutive failures in Closed
	successes int // consecutive successes in HalfOpen
	probes    int // requests admitted in HalfOpen and not yet reported
	openedAt  time.Time
	nowFunc   func() time.Time // for testing; defaults to time.Now
}

// New creates a Breaker with the given configuration.
func New(cfg Config) *Breaker {
	return &Breaker{
		cfg:     cfg.withDefaults(),
		state:   Closed,
		nowFunc: time.Now,
	}
}

// State returns the current state of the breaker. In Open state it may
// auto-transition to HalfOpen if the timeout has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	change := b.checkOpenTimeout()
	s := b.state
	b.mu.Unlock()
	b.notify(change)
	return s
}

// Allow reports whether a request may proceed. Every admitted request must
// be followed by exactly one call to OnSuccess or OnFailure.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	change := b.checkOpenTimeout()

	var ok bool
	switch b.state {
	case Closed:
		ok = true
	case HalfOpen:
		if b.successes+b.probes < b.cfg.HalfOpenMaxSuccess {
			b.probes++
			ok = true
		}
	}
	b.mu.Unlock()
	b.notify(change)
	return ok
}

// OnSuccess records a successful request.
func (b *Breaker) OnSuccess() {
	b.mu.Lock()
	var change *transition
	switch b.state {
	case Closed:
		b.failures = 0
	case HalfOpen:
		b.releaseProbe()
		b.successes++
		if b.successes >= b.cfg.HalfOpenMaxSuccess {
			change = b.to(Closed)
		}
	}
	b.mu.Unlock()
	b.notify(change)
}

// OnFailure records a failed request.
func (b *Breaker) OnFailure() {
	b.mu.Lock()
	var change *transition
	switch b.state {
	case Closed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			change = b.to(Open)
		}
	case HalfOpen:
		change = b.to(Open)
	}
	b.mu.Unlock()
	b.notify(change)
}

type transition struct{ from, to State }

// checkOpenTimeout transitions from Open to HalfOpen when the timeout has
// elapsed. Must be called with b.mu held.
func (b *Breaker) checkOpenTimeout() *transition {
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		return b.to(HalfOpen)
	}
	return nil
}

// to moves the breaker to state s and resets the counters. Must be called
// with b.mu held.
func (b *Breaker) to(s State) *transition {
	t := &transition{from: b.state, to: s}
	b.state = s
	b.failures = 0
	b.successes = 0
	b.probes = 0
	if s == Open {
		b.openedAt = b.now()
	}
	return t
}

func (b *Breaker) releaseProbe() {
	if b.probes > 0 {
		b.probes--
	}
}

func (b *Breaker) notify(t *transition) {
	if t != nil && b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(t.from, t.to)
	}
}

func (b *Breaker) now() time.Time {
	if b.nowFunc != nil {
		return b.nowFunc()
	}
	return time.Now()
}
