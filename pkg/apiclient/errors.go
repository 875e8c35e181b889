package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int    `json:"status"`
	Title      string `json:"title"`
	Detail     string `json:"detail,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return e.Title
}

// IsNotFound reports a missing image or route.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsBoundary reports a step past the first or last image.
func (e *APIError) IsBoundary() bool {
	return e.StatusCode == http.StatusConflict
}

// IsUnavailable reports a server without an open session.
func (e *APIError) IsUnavailable() bool {
	return e.StatusCode == http.StatusServiceUnavailable
}

// IsTimeout reports an image that did not decode in time.
func (e *APIError) IsTimeout() bool {
	return e.StatusCode == http.StatusGatewayTimeout
}

// parseError turns an error response into an *APIError. Problem details are
// preferred, then the "error" field of the response wrapper.
func parseError(status int, body []byte) *APIError {
	var problem APIError
	if json.Unmarshal(body, &problem) == nil && problem.Title != "" {
		problem.StatusCode = status
		return &problem
	}

	var wrapped struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &wrapped) == nil && wrapped.Error != "" {
		return &APIError{StatusCode: status, Title: http.StatusText(status), Detail: wrapped.Error}
	}

	return &APIError{
		StatusCode: status,
		Title:      http.StatusText(status),
		Detail:     strings.TrimSpace(string(body)),
	}
}
