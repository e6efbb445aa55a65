package ratelimit

import (
	"errors"

	gorawronion "github.com/Keksclan/goRawrOnion"
)

// ErrLimited is returned by Guard when the limiter has no tokens left.
var ErrLimited = errors.New("ratelimit: rate limit exceeded")

// Guard returns a handler that stops the pipeline with ErrLimited when l
// rejects the request and continues otherwise.
func Guard[C, R any](l *Limiter) gorawronion.Handler[C, R] {
	return func(_ C, next gorawronion.Next[R]) (R, error) {
		if !l.Allow() {
			var zero R
			return zero, ErrLimited
		}
		return next()
	}
}

// Pace returns a handler that waits for p before continuing.
func Pace[C, R any](p *Pacer) gorawronion.Handler[C, R] {
	return func(_ C, next gorawronion.Next[R]) (R, error) {
		p.Take()
		return next()
	}
}
