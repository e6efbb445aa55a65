package ratelimit

import (
	"time"

	"go.uber.org/ratelimit"
)

// Pacer spaces requests evenly at a fixed rate. Unlike Limiter it never
// rejects; Take blocks until the next slot.
type Pacer struct {
	rl ratelimit.Limiter
}

// NewPacer creates a Pacer allowing rps requests per second. slack is the
// number of requests that may be taken back to back after an idle period;
// zero disables slack.
func NewPacer(rps int, slack int) *Pacer {
	opts := []ratelimit.Option{ratelimit.WithoutSlack}
	if slack > 0 {
		opts = []ratelimit.Option{ratelimit.WithSlack(slack)}
	}
	return &Pacer{rl: ratelimit.New(rps, opts...)}
}

// Take blocks until the next request may start and returns that time.
func (p *Pacer) Take() time.Time {
	return p.rl.Take()
}
