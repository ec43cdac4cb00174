package identify

import "errors"

// Package-level error definitions for identify admission control.
var (
	ErrInvalidConcurrency = errors.New("identify concurrency must be positive")
	ErrInvalidWindow      = errors.New("identify window must be positive")
	ErrStoreUnavailable   = errors.New("identify store unavailable")
)
