// Package handlers provides HTTP handlers for the picseq API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/marmos91/picseq/pkg/fileseq"
	"github.com/marmos91/picseq/pkg/imageload"
	"github.com/marmos91/picseq/pkg/navigator"
	"github.com/marmos91/picseq/pkg/prefetch"
)

// Problem represents an RFC 7807 "problem details" response.
// https://tools.ietf.org/html/rfc7807
type Problem struct {
	// Type is a URI reference that identifies the problem type.
	// If not set, defaults to "about:blank".
	Type string `json:"type,omitempty"`

	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`

	// Status is the HTTP status code for this occurrence of the problem.
	Status int `json:"status"`

	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`
}

// ContentTypeProblemJSON is the Content-Type for RFC 7807 problem responses.
const ContentTypeProblemJSON = "application/problem+json"

// WriteProblem writes an RFC 7807 problem response.
func WriteProblem(w http.ResponseWriter, status int, title, detail string) {
	problem := &Problem{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	}

	w.Header().Set("Content-Type", ContentTypeProblemJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// BadRequest writes a 400 Bad Request problem response.
func BadRequest(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusBadRequest, "Bad Request", detail)
}

// NotFound writes a 404 Not Found problem response.
func NotFound(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusNotFound, "Not Found", detail)
}

// Conflict writes a 409 Conflict problem response.
func Conflict(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusConflict, "Conflict", detail)
}

// UnprocessableEntity writes a 422 Unprocessable Entity problem response.
func UnprocessableEntity(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", detail)
}

// InternalServerError writes a 500 Internal Server Error problem response.
func InternalServerError(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", detail)
}

// ServiceUnavailable writes a 503 Service Unavailable problem response.
func ServiceUnavailable(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusServiceUnavailable, "Service Unavailable", detail)
}

// GatewayTimeout writes a 504 Gateway Timeout problem response.
func GatewayTimeout(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusGatewayTimeout, "Gateway Timeout", detail)
}

// writeNavigationError maps navigation, cache and decode errors to a problem
// response.
func writeNavigationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, navigator.ErrNotOpen):
		ServiceUnavailable(w, err.Error())
	case errors.Is(err, navigator.ErrLastImage), errors.Is(err, navigator.ErrFirstImage):
		Conflict(w, err.Error())
	case errors.Is(err, navigator.ErrNoImage):
		NotFound(w, err.Error())
	case errors.Is(err, prefetch.ErrTimeout):
		GatewayTimeout(w, err.Error())
	case errors.Is(err, prefetch.ErrStopped):
		ServiceUnavailable(w, err.Error())
	case errors.Is(err, fileseq.ErrUnknownStrategy),
		errors.Is(err, navigator.ErrInvalidImage),
		errors.Is(err, imageload.ErrUnsupportedFormat),
		errors.Is(err, imageload.ErrFileTooLarge):
		UnprocessableEntity(w, err.Error())
	default:
		InternalServerError(w, err.Error())
	}
}
