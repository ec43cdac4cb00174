package gateway

import "errors"

// Package-level error definitions for the gateway connection.
var (
	ErrInvalidConfig      = errors.New("invalid gateway configuration")
	ErrEmptyToken         = errors.New("bot token is required")
	ErrAlreadyStarted     = errors.New("gateway connection already started")
	ErrNotStarted         = errors.New("gateway connection not started")
	ErrNotConnected       = errors.New("gateway connection is not in a session")
	ErrReconnectForbidden = errors.New("close code forbids reconnecting")
)
