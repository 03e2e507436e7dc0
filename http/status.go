package http

import "net/http"

// IsClientError checks if status code is a client error (4xx).
func IsClientError(statusCode int) bool {
	return statusCode >= 400 && statusCode < 500
}

// IsServerError checks if status code is a server error (5xx).
func IsServerError(statusCode int) bool {
	return statusCode >= 500 && statusCode < 600
}

// IsTransientStatus reports whether a failed response with this status code
// describes a condition that may clear up on its own (server errors,
// timeouts, throttling). Nothing in yucil retries automatically; callers use
// this to tell the user whether trying again later is worthwhile.
func IsTransientStatus(statusCode int) bool {
	if IsServerError(statusCode) {
		return true
	}

	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return false
}
