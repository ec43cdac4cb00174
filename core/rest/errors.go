package rest

import (
	"errors"
	"fmt"
)

// Package-level error definitions for REST execution.
var (
	ErrInvalidConfig = errors.New("invalid executor configuration")
	ErrEmptyToken    = errors.New("bot token is required")
)

// APIError is a semantic rejection from the platform: the response carried a
// parseable vendor error body. It propagates to callers untouched because
// they may need the vendor code.
type APIError struct {
	Status  int    `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Errors  string `json:"errors"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (http %d): %s", e.Code, e.Status, e.Message)
}

// ServerError is a failed response without a usable vendor error body:
// either a 5xx or an error status whose body did not parse.
type ServerError struct {
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: http %d", e.Status)
}

// TransportError wraps a request that produced no HTTP response at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RequestError reports a call that spent its retry budget. Causes holds every
// attempt's failure, most recent first; the most recent is the primary cause.
type RequestError struct {
	Causes []error
}

func (e *RequestError) Error() string {
	if len(e.Causes) == 0 {
		return "request failed"
	}
	return fmt.Sprintf("request failed after %d attempts: %v", len(e.Causes), e.Causes[0])
}

// Unwrap exposes all attempt failures to errors.Is/As.
func (e *RequestError) Unwrap() []error {
	return e.Causes
}
