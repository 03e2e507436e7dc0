package youtube

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"yucil/auth"
	httpx "yucil/http"
)

// Sentinel errors for playlist retrieval.
var (
	ErrRemoteAPI         = errors.New("youtube: remote API error")
	ErrMalformedResponse = errors.New("youtube: malformed response")
	ErrInvalidPlaylistID = errors.New("youtube: invalid playlist id")
	ErrInvalidItem       = errors.New("youtube: invalid playlist item")
)

// ErrorKind classifies why a fetch failed.
type ErrorKind string

const (
	KindConfigMissing       ErrorKind = "config_missing"
	KindAuthorizationFailed ErrorKind = "authorization_failed"
	KindTransport           ErrorKind = "transport"
	KindRemoteAPI           ErrorKind = "remote_api"
	KindMalformedResponse   ErrorKind = "malformed_response"
	KindCanceled            ErrorKind = "canceled"
	KindInvalidArgument     ErrorKind = "invalid_argument"
)

func (k ErrorKind) String() string { return string(k) }

// FetchError wraps a failed fetch with its operation and kind.
//
// Use errors.As to inspect:
//
//	var fetchErr *youtube.FetchError
//	if errors.As(err, &fetchErr) && fetchErr.Kind == youtube.KindConfigMissing {
//	    // ask the user to install client_secret.json
//	}
type FetchError struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *FetchError) Error() string {
	return "youtube: " + e.Op + " (" + string(e.Kind) + "): " + e.Err.Error()
}

func (e *FetchError) Unwrap() error { return e.Err }

// RemoteAPIError is a structured error returned by the YouTube Data API.
type RemoteAPIError struct {
	StatusCode int
	Reason     string
	Message    string
	Err        error
}

func (e *RemoteAPIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("api status %d (%s): %s", e.StatusCode, e.Reason, e.Message)
	}
	return fmt.Sprintf("api status %d: %s", e.StatusCode, e.Message)
}

func (e *RemoteAPIError) Unwrap() error { return e.Err }

// Is matches ErrRemoteAPI.
func (e *RemoteAPIError) Is(target error) bool { return target == ErrRemoteAPI }

// Transient reports whether the same request may succeed later.
func (e *RemoteAPIError) Transient() bool {
	switch e.Reason {
	case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded", "backendError":
		return true
	}
	return httpx.IsTransientStatus(e.StatusCode)
}

// CredentialRejected reports whether the API refused the credential itself:
// the token was revoked elsewhere or lacks the scope the call needs.
func (e *RemoteAPIError) CredentialRejected() bool {
	return e.StatusCode == http.StatusUnauthorized || e.Reason == "insufficientPermissions"
}

// KindOf returns the kind of err, or "" for nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind
	}
	return kindFor(err)
}

// IsTransient reports whether err is worth retrying by the caller.
func IsTransient(err error) bool {
	var remote *RemoteAPIError
	if errors.As(err, &remote) {
		return remote.Transient()
	}
	return KindOf(err) == KindTransport
}

func kindFor(err error) ErrorKind {
	var (
		retrieveErr *oauth2.RetrieveError
		apiErr      *googleapi.Error
		urlErr      *url.Error
		netErr      net.Error
	)
	switch {
	case errors.Is(err, auth.ErrConfigMissing):
		return KindConfigMissing
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, auth.ErrAuthorizationFailed), errors.As(err, &retrieveErr):
		return KindAuthorizationFailed
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformedResponse
	case errors.Is(err, ErrInvalidPlaylistID), errors.Is(err, ErrInvalidItem):
		return KindInvalidArgument
	case errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized:
		return KindAuthorizationFailed
	case errors.As(err, &apiErr), errors.Is(err, ErrRemoteAPI):
		return KindRemoteAPI
	case errors.Is(err, httpx.ErrRequestFailed), errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &urlErr), errors.As(err, &netErr):
		return KindTransport
	default:
		return KindRemoteAPI
	}
}

// classify wraps err into a FetchError, converting API errors into
// RemoteAPIError so callers can inspect status and reason.
func classify(op string, err error) error {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return err
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		remote := &RemoteAPIError{StatusCode: apiErr.Code, Message: apiErr.Message, Err: apiErr}
		if len(apiErr.Errors) > 0 {
			remote.Reason = apiErr.Errors[0].Reason
			if remote.Message == "" {
				remote.Message = apiErr.Errors[0].Message
			}
		}
		kind := KindRemoteAPI
		if remote.CredentialRejected() {
			kind = KindAuthorizationFailed
		}
		return &FetchError{Op: op, Kind: kind, Err: remote}
	}

	return &FetchError{Op: op, Kind: kindFor(err), Err: err}
}
