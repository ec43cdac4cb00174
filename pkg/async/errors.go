package async

import "errors"

// Package-level error definitions for asynchronous execution.
var (
	ErrTimeout = errors.New("await timed out")
)
