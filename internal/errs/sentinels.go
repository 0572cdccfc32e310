// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity, tab, or document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrBadCredentials indicates malformed or unusable service credential
	// material. Configuration error, never retried.
	ErrBadCredentials = errors.New("bad credentials")

	// ErrAuthFailed indicates an external call was rejected with 401.
	ErrAuthFailed = errors.New("auth failed")

	// ErrForbidden indicates an external call was rejected with 403.
	ErrForbidden = errors.New("forbidden")

	// ErrServer indicates an external 5xx response.
	ErrServer = errors.New("server error")

	// ErrUnknownEntityType indicates a sync request for a type outside the
	// supported set.
	ErrUnknownEntityType = errors.New("unknown entity type")
)

// APIError carries the status and response body of a failed external call.
// It unwraps to one of the sentinels above so callers can decide retry vs fatal.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("external api: status %d: %s", e.Status, e.Body)
}

// Unwrap maps the HTTP status onto the failure taxonomy.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized:
		return ErrAuthFailed
	case e.Status == http.StatusForbidden:
		return ErrForbidden
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status >= 500:
		return ErrServer
	default:
		return nil
	}
}
