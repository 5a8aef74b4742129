package apiclient

import (
	"fmt"
	"net/http"
)

// APIError represents an RFC 7807 "problem details" error response.
type APIError struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return e.Title
}

// IsAuthError returns true if this is an authentication or authorization error.
func (e *APIError) IsAuthError() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// IsNotFound returns true if this is a not found error.
func (e *APIError) IsNotFound() bool {
	return e.Status == http.StatusNotFound
}

// IsConflict returns true if this is a conflict error. The server answers
// 409 for out-of-order chunks and for job transitions not allowed from the
// job's current state.
func (e *APIError) IsConflict() bool {
	return e.Status == http.StatusConflict
}

// IsTooLarge returns true if the server rejected a chunk for exceeding its
// size limit.
func (e *APIError) IsTooLarge() bool {
	return e.Status == http.StatusRequestEntityTooLarge
}
