// Package api provides common HTTP API utilities including error handling.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Deterministic reason codes for stable error classification.
// These codes should remain stable across versions for client compatibility.
const (
	// Authentication
	ReasonUnauthenticated    = "unauthenticated"
	ReasonSessionExpired     = "session_expired"
	ReasonInvalidCredentials = "invalid_credentials"

	// Request validation and business rules
	ReasonBadRequest = "bad_request"
	ReasonForbidden  = "forbidden"
	ReasonNotFound   = "not_found"
	ReasonConflict   = "conflict"

	// Rate limiting
	ReasonRateLimited = "rate_limited"

	// Server errors
	ReasonInternalError = "internal_error"
)

// Error is a business-rule failure with a fixed user-visible message.
// The message strings are part of the API contract and are surfaced verbatim.
type Error struct {
	Status  int    // HTTP status code
	Reason  string // deterministic reason code
	Message string // stable user-visible message
}

func (e *Error) Error() string { return e.Message }

// NotFound returns a 404 error with the given message.
func NotFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Reason: ReasonNotFound, Message: message}
}

// Forbidden returns a 403 error with the given message.
func Forbidden(message string) *Error {
	return &Error{Status: http.StatusForbidden, Reason: ReasonForbidden, Message: message}
}

// Conflict returns a 409 error with the given message.
func Conflict(message string) *Error {
	return &Error{Status: http.StatusConflict, Reason: ReasonConflict, Message: message}
}

// BadRequest returns a 400 error with the given message.
func BadRequest(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Reason: ReasonBadRequest, Message: message}
}

// Unauthorized returns a 401 error with the given message.
func Unauthorized(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Reason: ReasonUnauthenticated, Message: message}
}

// ErrorEnvelope is the standard error response format.
// All error responses use this structure for consistency.
type ErrorEnvelope struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error information.
type ErrorDetail struct {
	Code       string `json:"code"`        // HTTP status text (e.g., "Forbidden")
	ReasonCode string `json:"reason_code"` // Deterministic reason code
	Message    string `json:"message"`     // Stable user-visible message
}

// WriteError writes a standardized JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, reasonCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	envelope := ErrorEnvelope{
		Error: ErrorDetail{
			Code:       http.StatusText(statusCode),
			ReasonCode: reasonCode,
			Message:    message,
		},
	}

	json.NewEncoder(w).Encode(envelope)
}

// WriteErr translates an error into a JSON error response. Typed *Error
// values keep their status, reason, and message; anything else becomes a
// 500 with a generic message so internal details never leak.
func WriteErr(w http.ResponseWriter, err error) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		WriteError(w, apiErr.Status, apiErr.Reason, apiErr.Message)
		return
	}
	WriteError(w, http.StatusInternalServerError, ReasonInternalError, "internal server error")
}

// WriteUnauthorized writes a 401 Unauthorized error.
func WriteUnauthorized(w http.ResponseWriter, reasonCode, message string) {
	WriteError(w, http.StatusUnauthorized, reasonCode, message)
}

// WriteBadRequest writes a 400 Bad Request error.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ReasonBadRequest, message)
}

// WriteTooManyRequests writes a 429 Too Many Requests error.
func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, ReasonRateLimited, message)
}

// WriteInternalError writes a 500 Internal Server Error.
// Be careful not to leak sensitive information in the message.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, ReasonInternalError, message)
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}
