package yucil

import (
	"yucil/auth"
	"yucil/dispatch"
	httpx "yucil/http"
	"yucil/storage"
	"yucil/youtube"
)

// Exported error types from sub-packages:
//
// From auth package:
//   - auth.ErrConfigMissing: client secret absent or unreadable
//   - auth.ErrAuthorizationFailed: consent declined, bad callback, timeout
//
// From youtube package:
//   - youtube.ErrRemoteAPI: structured API error (see RemoteAPIError)
//   - youtube.ErrMalformedResponse: response lacks expected fields
//   - youtube.FetchError: failed fetch with its ErrorKind
//
// From http package:
//   - http.ErrRequestFailed: transport-level failure
//
// From storage package:
//   - storage.ErrNotFound, storage.ErrInvalidInput, storage.ErrStorageCorrupt,
//     storage.ErrLockTimeout, storage.StorageError

// Type aliases for convenient error handling.
type (
	// FetchError wraps a failed playlist fetch.
	FetchError = youtube.FetchError
	// RemoteAPIError carries the API status and reason.
	RemoteAPIError = youtube.RemoteAPIError
	// ErrorKind classifies a FetchError.
	ErrorKind = youtube.ErrorKind
	// StorageError wraps errors during storage operations.
	StorageError = storage.StorageError
	// Failure is the command boundary's rendering of an error.
	Failure = dispatch.Failure
)

// Sentinel errors exported from sub-packages.
var (
	ErrConfigMissing       = auth.ErrConfigMissing
	ErrAuthorizationFailed = auth.ErrAuthorizationFailed
	ErrRemoteAPI           = youtube.ErrRemoteAPI
	ErrMalformedResponse   = youtube.ErrMalformedResponse
	ErrRequestFailed       = httpx.ErrRequestFailed

	// Storage errors
	ErrNotFound       = storage.ErrNotFound
	ErrInvalidInput   = storage.ErrInvalidInput
	ErrStorageCorrupt = storage.ErrStorageCorrupt
	ErrLockTimeout    = storage.ErrLockTimeout
)

// KindOf returns the failure kind of err.
func KindOf(err error) ErrorKind {
	return youtube.KindOf(err)
}

// IsTransient reports whether err may go away if the request is repeated
// later (rate limits, quota, server errors, network failures).
func IsTransient(err error) bool {
	return youtube.IsTransient(err)
}
