package interaction

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when lifecycle parameters fail validation.
	ErrInvalidConfig = errors.New("invalid interaction config")

	// ErrNilClient is returned when no webhook client is provided.
	ErrNilClient = errors.New("webhook client is required")

	// ErrClosed is returned for operations on an explicitly closed lifecycle.
	ErrClosed = errors.New("interaction closed")

	// ErrExpired is returned once the interaction token's validity window has
	// passed and the processing queue is torn down.
	ErrExpired = errors.New("interaction expired")

	// ErrOpTimeout is returned when a single queued operation exceeds its
	// processing deadline. Only that operation fails; the interaction and its
	// queue keep running.
	ErrOpTimeout = errors.New("interaction operation timed out")

	// ErrInvalidState is the match target for verb-ordering violations.
	ErrInvalidState = errors.New("invalid interaction state")
)

// InvalidStateError reports a response verb called out of order. It names the
// offending verb and the state it was called in, and unwraps to
// ErrInvalidState for errors.Is checks.
type InvalidStateError struct {
	Verb  string
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s in state %q", e.Verb, e.State)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }
