package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// Error taxonomy for everything the workflow layer can surface to a caller.
// Errors are returned as typed values, nothing in this package panics past
// the API boundary.

// ValidationError is a local pre-submission failure: bad file type or count,
// over-long video, empty description. It is raised before any network call.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NetworkError wraps a request that never reached the server or never
// completed. Retry-capable from the caller's point of view.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// AuthorizationError is a 401-class response, surfaced distinctly so the
// caller can instruct re-authentication instead of a generic retry.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string {
	if e.Message == "" {
		return "authentication required"
	}
	return e.Message
}

// ServerError is any other non-2xx response. Message is extracted from the
// JSON body when present, generic otherwise.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsAuthorization(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}

func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// The API reports failures as {"message": "..."} bodies.
type errorBody struct {
	Message string `json:"message"`
}

// responseError converts a non-2xx response into a typed error. The body is
// fully consumed so the underlying connection can be reused.
func responseError(res *http.Response) error {
	body, _ := io.ReadAll(res.Body)

	var parsed errorBody
	if len(body) > 0 {
		json.Unmarshal(body, &parsed)
	}

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return &AuthorizationError{Message: parsed.Message}
	}
	return &ServerError{StatusCode: res.StatusCode, Message: parsed.Message}
}
