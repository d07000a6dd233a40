package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid credentials")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "not authorized to access this route")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrCreatorNotApproved = New("CREATOR_NOT_APPROVED", http.StatusForbidden, "creator account not approved yet")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrMissingFields      = New("MISSING_FIELDS", http.StatusBadRequest, "required fields are missing")
	ErrDuplicate          = New("DUPLICATE_ERROR", http.StatusConflict, "resource already exists")
	ErrInternal           = New("INTERNAL_SERVER_ERROR", http.StatusInternalServerError, "internal server error")

	ErrMissingIdempotencyKey = New("MISSING_IDEMPOTENCY_KEY", http.StatusBadRequest, "Idempotency-Key header is required for POST requests")
	ErrCourseNotPublished    = New("COURSE_NOT_PUBLISHED", http.StatusBadRequest, "course is not published yet")
	ErrAlreadyEnrolled       = New("ALREADY_ENROLLED", http.StatusBadRequest, "already enrolled in this course")
	ErrIncompleteCourse      = New("INCOMPLETE_COURSE", http.StatusBadRequest, "course must be completed to generate certificate")
	ErrCertificateExists     = New("CERTIFICATE_EXISTS", http.StatusBadRequest, "certificate already generated for this course")
	ErrInvalidStatus         = New("INVALID_STATUS", http.StatusBadRequest, "status must be either published or rejected")
	ErrInvalidRole           = New("INVALID_ROLE", http.StatusBadRequest, "user is not a creator")

	ErrCacheMiss = New("CACHE_MISS", http.StatusNotFound, "cache entry not found")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WithField returns a copy carrying the offending field name.
func WithField(err *Error, field string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	clone.Field = field
	return &clone
}
