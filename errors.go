package gorawronion

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is matched by every error Compose and ComposeAny
	// return for a malformed stack.
	ErrInvalidArgument = errors.New("gorawronion: invalid argument")

	// ErrNotSequence is returned by ComposeAny when the stack is not a slice
	// or an array.
	ErrNotSequence = fmt.Errorf("%w: middleware stack must be a slice or an array", ErrInvalidArgument)

	// ErrNotFunction is returned when a stack element cannot act as a
	// handler.
	ErrNotFunction = fmt.Errorf("%w: middleware must be composed of functions", ErrInvalidArgument)

	// ErrMultipleNext is returned by a next continuation that has already
	// been called during the same run.
	ErrMultipleNext = errors.New("gorawronion: next() called multiple times")
)
