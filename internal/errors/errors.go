package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// AppError represents an application error with HTTP context
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"` // input that failed, for re-prompting
	Details    string `json:"details,omitempty"`
	StatusCode int    `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

// ErrorResponse is the JSON response format for errors
type ErrorResponse struct {
	Error *AppError `json:"error"`
}

// WriteJSON writes the error as JSON response
func (e *AppError) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: e})
}

// ============================================================
// ERROR CONSTRUCTORS
// ============================================================

// Validation Errors (400)
func BadRequest(message string) *AppError {
	return &AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func InvalidJSON(details string) *AppError {
	return &AppError{
		Code:       "INVALID_JSON",
		Message:    "Invalid JSON in request body",
		Details:    details,
		StatusCode: http.StatusBadRequest,
	}
}

func InvalidField(field, details string) *AppError {
	return &AppError{
		Code:       "INVALID_FIELD",
		Message:    fmt.Sprintf("Field '%s' is invalid", field),
		Field:      field,
		Details:    details,
		StatusCode: http.StatusBadRequest,
	}
}

func InvalidName() *AppError {
	return &AppError{
		Code:       "INVALID_NAME",
		Message:    "Name must be non-empty and contain letters only",
		Field:      "name",
		StatusCode: http.StatusBadRequest,
	}
}

func InvalidDuration(details string) *AppError {
	return &AppError{
		Code:       "INVALID_DURATION",
		Message:    "Duration must be positive, e.g. \"1d 2h 30m\"",
		Field:      "duration",
		Details:    details,
		StatusCode: http.StatusBadRequest,
	}
}

// Unprocessable (422)
func UnreachableURL(url string) *AppError {
	return &AppError{
		Code:       "UNREACHABLE_URL",
		Message:    "The destination URL did not answer",
		Field:      "url",
		Details:    url,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

func AlreadyExpired() *AppError {
	return &AppError{
		Code:       "ALREADY_EXPIRED",
		Message:    "The new expiry must be in the future",
		Field:      "duration",
		StatusCode: http.StatusUnprocessableEntity,
	}
}

// Auth Errors (401/403)
func Unauthenticated() *AppError {
	return &AppError{
		Code:       "UNAUTHENTICATED",
		Message:    "Missing or unknown X-User-ID header",
		StatusCode: http.StatusUnauthorized,
	}
}

func NotOwned(token string) *AppError {
	return &AppError{
		Code:       "NOT_OWNED",
		Message:    fmt.Sprintf("Short link '%s' belongs to another user", token),
		StatusCode: http.StatusForbidden,
	}
}

// Not Found Errors (404)
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func LinkNotFound(token string) *AppError {
	return &AppError{
		Code:       "LINK_NOT_FOUND",
		Message:    fmt.Sprintf("Short link '%s' not found or no longer active", token),
		StatusCode: http.StatusNotFound,
	}
}

// Rate Limit Error (429)
func RateLimitExceeded() *AppError {
	return &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Too many requests, please try again later",
		StatusCode: http.StatusTooManyRequests,
	}
}

// Server Errors (500)
func Internal(details string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An internal server error occurred",
		Details:    details,
		StatusCode: http.StatusInternalServerError,
	}
}
