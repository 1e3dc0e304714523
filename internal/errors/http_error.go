package errors

import (
	"errors"
	"net/http"
)

// Reason is a stable machine-checkable rejection code returned alongside
// the human-readable message.
type Reason string

const (
	ReasonValidation          Reason = "validation_error"
	ReasonNotFound            Reason = "not_found"
	ReasonConflict            Reason = "conflict"
	ReasonExternalUnavailable Reason = "external_unavailable"
	ReasonInvariantViolation  Reason = "invariant_violation"
)

// AppError is an error with a reason code and an associated HTTP status.
type AppError struct {
	Reason  Reason
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

// HTTPStatus maps the reason to its response code.
func (e *AppError) HTTPStatus() int {
	switch e.Reason {
	case ReasonValidation, ReasonInvariantViolation:
		return http.StatusBadRequest
	case ReasonNotFound:
		return http.StatusNotFound
	case ReasonConflict:
		return http.StatusConflict
	case ReasonExternalUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Validation(message string) *AppError {
	return &AppError{Reason: ReasonValidation, Message: message}
}

func NotFound(message string) *AppError {
	return &AppError{Reason: ReasonNotFound, Message: message}
}

func Conflict(message string) *AppError {
	return &AppError{Reason: ReasonConflict, Message: message}
}

func ExternalUnavailable(message string) *AppError {
	return &AppError{Reason: ReasonExternalUnavailable, Message: message}
}

func Invariant(message string) *AppError {
	return &AppError{Reason: ReasonInvariantViolation, Message: message}
}

// ReasonOf extracts the reason code from err, if it carries one.
func ReasonOf(err error) (Reason, bool) {
	var app *AppError
	if errors.As(err, &app) {
		return app.Reason, true
	}
	return "", false
}
