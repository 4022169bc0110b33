package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned when an authenticated request is
	// issued without an access token. This is caller misuse, not an HTTP
	// failure, and is deliberately distinct from APIError.
	ErrNotAuthenticated = errors.New("session: not authenticated")

	// ErrSessionExpired is returned when a token refresh fails and the
	// session has been torn down.
	ErrSessionExpired = errors.New("session: expired")

	// ErrUnknownWorkspace is returned by SetActiveWorkspace for an id that
	// is not in the current workspace list.
	ErrUnknownWorkspace = errors.New("session: workspace not in current list")
)

// APIError carries the HTTP status code and parsed body of a non-2xx
// response, so callers can tell 401 from 409 from anything else.
type APIError struct {
	StatusCode int
	Body       []byte
	Detail     string
}

func newAPIError(statusCode int, body []byte) *APIError {
	e := &APIError{StatusCode: statusCode, Body: body}

	// The backend wraps error messages as {"detail": "..."}.
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		e.Detail = payload.Detail
	}
	return e
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, statusCode int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == statusCode
}
