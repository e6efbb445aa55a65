package breaker

import (
	"errors"

	gorawronion "github.com/Keksclan/goRawrOnion"
)

// ErrOpen is returned by Guard when the breaker rejects a request.
var ErrOpen = errors.New("breaker: circuit open")

// Guard returns a pipeline handler that rejects the run with ErrOpen while b
// is open and reports the outcome of next to b otherwise. isFailure decides
// which errors count against the breaker; nil counts every non-nil error. A
// panic further down the pipeline counts as a failure and keeps unwinding.
func Guard[C, R any](b *Breaker, isFailure func(error) bool) gorawronion.Handler[C, R] {
	if isFailure == nil {
		isFailure = func(err error) bool { return err != nil }
	}
	return func(_ C, next gorawronion.Next[R]) (R, error) {
		if !b.Allow() {
			var zero R
			return zero, ErrOpen
		}

		reported := false
		defer func() {
			if !reported {
				b.OnFailure()
			}
		}()

		res, err := next()
		reported = true
		if isFailure(err) {
			b.OnFailure()
		} else {
			b.OnSuccess()
		}
		return res, err
	}
}
