// Package errors defines the JSON error envelope every HTTP error response
// uses, and helpers for writing it.
package errors

import (
	"encoding/json"
	"net/http"
)

// Stable machine-readable error codes.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeTooManyRequests  = "TOO_MANY_REQUESTS"
	CodeInternal         = "INTERNAL_ERROR"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
)

// HTTPErrorResponse is the wire shape of every error the API returns.
type HTTPErrorResponse struct {
	Error HTTPError `json:"error"`
}

// HTTPError is the envelope body.
type HTTPError struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	RequestID string                 `json:"request_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Write serializes an error envelope with the given HTTP status.
func Write(w http.ResponseWriter, status int, code, message string) {
	WriteWithDetails(w, status, code, message, nil)
}

// WriteWithDetails serializes an error envelope carrying extra context.
func WriteWithDetails(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPErrorResponse{
		Error: HTTPError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// BadRequest writes a 400 envelope.
func BadRequest(w http.ResponseWriter, message string) {
	Write(w, http.StatusBadRequest, CodeBadRequest, message)
}

// NotFound writes a 404 envelope.
func NotFound(w http.ResponseWriter, message string) {
	Write(w, http.StatusNotFound, CodeNotFound, message)
}

// Internal writes a 500 envelope.
func Internal(w http.ResponseWriter, message string) {
	Write(w, http.StatusInternalServerError, CodeInternal, message)
}

// RespondWithError maps an arbitrary error onto the envelope. Everything
// lands on 500; callers with a more specific status write it themselves.
func RespondWithError(w http.ResponseWriter, _ *http.Request, err error) {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	Internal(w, msg)
}
