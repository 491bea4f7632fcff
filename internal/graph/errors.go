// Package graph provides a Microsoft Graph API client for the slidecast
// pipeline: device-code authentication, shared-item discovery, folder
// listing, and content download. Requests carry automatic retry with
// exponential backoff and error classification into sentinel errors.
package graph

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status classification.
// Check with errors.Is(err, graph.ErrNotFound).
var (
	ErrBadRequest   = errors.New("graph: bad request")
	ErrUnauthorized = errors.New("graph: unauthorized")
	ErrForbidden    = errors.New("graph: forbidden")
	ErrNotFound     = errors.New("graph: not found")
	ErrThrottled    = errors.New("graph: throttled")
	ErrServerError  = errors.New("graph: server error")
)

// Auth and discovery sentinels.
var (
	// ErrNotLoggedIn indicates no saved token exists; the user must log in first.
	ErrNotLoggedIn = errors.New("graph: not logged in")

	// ErrFlowNotStarted is returned by DeviceFlow.Complete when Initiate
	// has not run. Completion never silently succeeds without initiation.
	ErrFlowNotStarted = errors.New("graph: device flow not initiated")

	// ErrNoUserCode indicates the identity provider's device-auth response
	// lacked a user code, so there is nothing to show the user.
	ErrNoUserCode = errors.New("graph: device auth response missing user code")

	// ErrNoAccessToken indicates device-flow completion returned no access
	// token (the request expired or the user denied it).
	ErrNoAccessToken = errors.New("graph: no access token returned")

	// ErrSharedFolderNotFound indicates no shared item matched the requested
	// folder name. Matching is case-sensitive and exact.
	ErrSharedFolderNotFound = errors.New("graph: shared folder not found")
)

// APIError wraps a sentinel error with the HTTP status code, the Graph
// request ID, and the response body for debugging.
type APIError struct {
	StatusCode int
	RequestID  string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("graph: HTTP %d (request-id: %s): %s", e.StatusCode, e.RequestID, e.Message)
	}

	return fmt.Sprintf("graph: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps a non-success HTTP status to a sentinel error.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isRetryable reports whether a status code is worth retrying.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
