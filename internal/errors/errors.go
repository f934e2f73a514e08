package errors

import (
	stderrors "errors"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypePathEscape ErrorType = "PATH_ESCAPE"
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeInternal   ErrorType = "INTERNAL"
)

type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details any       `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

func NotFound(message string) *Error {
	return &Error{
		Type:    ErrorTypeNotFound,
		Message: message,
		Code:    http.StatusNotFound,
	}
}

// PathEscape marks a client path that tried to leave its sandbox root.
// Reported as a client error, never fatal.
func PathEscape(message string) *Error {
	return &Error{
		Type:    ErrorTypePathEscape,
		Message: message,
		Code:    http.StatusBadRequest,
	}
}

func ValidationError(message string, details any) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Message: message,
		Code:    http.StatusBadRequest,
		Details: details,
	}
}

// Internal marks an unexpected failure. The cause belongs in operator
// logs; callers must not leak it to clients.
func Internal(message string) *Error {
	return &Error{
		Type:    ErrorTypeInternal,
		Message: message,
		Code:    http.StatusInternalServerError,
	}
}

// Code returns the HTTP status for err, defaulting to 500 for errors
// outside the taxonomy.
func Code(err error) int {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return http.StatusInternalServerError
}

// IsType reports whether err is a taxonomy error of the given type.
func IsType(err error, t ErrorType) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Type == t
}
