package http

import (
	"errors"
	"fmt"
)

// ErrRequestFailed indicates the request itself failed (network error) before
// any HTTP response was received.
var ErrRequestFailed = errors.New("http request failed")

// RequestError wraps a transport failure with the request it belongs to.
type RequestError struct {
	// Method is the HTTP method of the failed request
	Method string
	// Host is the target host
	Host string
	// Err is the underlying transport error
	Err error
}

// Error returns a string representation of the request error.
func (e *RequestError) Error() string {
	return fmt.Sprintf("http request failed: %s %s: %v", e.Method, e.Host, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *RequestError) Unwrap() error { return e.Err }

// Is reports ErrRequestFailed as a match so callers can test with errors.Is.
func (e *RequestError) Is(target error) bool { return target == ErrRequestFailed }
