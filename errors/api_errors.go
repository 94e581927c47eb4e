package errors

import "net/http"

// APIError is the JSON error shape returned by every local endpoint.
// Upstream platform errors are passed through verbatim and do not use it.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Common error constructors, one per taxonomy class.

func NewValidationError(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Message: message}
}

func NewConflictError(message string) *APIError {
	return &APIError{Status: http.StatusConflict, Message: message}
}

func NewAuthError(message string) *APIError {
	return &APIError{Status: http.StatusUnauthorized, Message: message}
}

func NewNotFoundError(message string) *APIError {
	return &APIError{Status: http.StatusNotFound, Message: message}
}

func NewServiceUnavailable(message string) *APIError {
	return &APIError{Status: http.StatusServiceUnavailable, Message: message}
}

// NewInternalError deliberately carries a generic message; diagnostic detail
// stays in the server log.
func NewInternalError() *APIError {
	return &APIError{Status: http.StatusInternalServerError, Message: "internal server error"}
}
