// Package apperr defines the failure taxonomy shared by all services and
// mapped to HTTP status codes at the boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for boundary mapping.
type Kind int

const (
	// Validation is malformed or missing input. Client-correctable,
	// never retried.
	Validation Kind = iota
	// NotFound covers an absent entity or one in the wrong state for the
	// requested transition (deliberately conflated at the HTTP surface).
	NotFound
	// AccessDenied is an authenticated caller that is not a party to the
	// resource.
	AccessDenied
	// Conflict covers slot conflicts and duplicate decisions.
	Conflict
	// State covers operations rejected by current entity state, e.g.
	// communication not enabled or no active call.
	State
	// Unauthorized covers credential and token failures.
	Unauthorized
	// Upstream is a record-store or transport failure. Logged, surfaced
	// as a generic failure, never retried within the request.
	Upstream
)

// Error is a typed failure with a stable machine-readable code and a
// human message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap creates an Upstream error around a lower-level failure.
func Wrap(err error, message string) *Error {
	return &Error{Kind: Upstream, Code: "UPSTREAM_ERROR", Message: message, Err: err}
}

// As extracts an *Error from err, or nil.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// HTTPStatus maps a Kind to its fixed status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Validation:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case AccessDenied:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case State:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Well-known failures shared across services.
var (
	ErrInvalidCredentials = New(Unauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	ErrAccountInactive    = New(Unauthorized, "ACCOUNT_INACTIVE", "Account is deactivated")
	ErrPendingApproval    = New(Unauthorized, "PENDING_APPROVAL", "Account is pending admin approval")
	ErrRejected           = New(Unauthorized, "ACCOUNT_REJECTED", "Account application has been rejected")
	ErrInvalidToken       = New(Unauthorized, "INVALID_TOKEN", "Invalid or expired token")
	ErrSubjectNotFound    = New(Unauthorized, "SUBJECT_NOT_FOUND", "Account not found or inactive")

	ErrProfessionalUnavailable = New(NotFound, "PROFESSIONAL_UNAVAILABLE", "Professional not found or inactive")
	ErrSlotConflict            = New(Conflict, "SLOT_CONFLICT", "Professional is not available at this time")
	ErrAppointmentNotFound     = New(NotFound, "APPOINTMENT_NOT_FOUND", "Appointment not found or already processed")
	ErrAccessDenied            = New(AccessDenied, "ACCESS_DENIED", "Access denied")

	ErrCommunicationNotEnabled = New(NotFound, "COMMUNICATION_NOT_ENABLED", "Appointment not found or communication not enabled")
	ErrNoActiveCall            = New(State, "NO_ACTIVE_CALL", "No active call found")
	ErrCallInProgress          = New(State, "CALL_IN_PROGRESS", "A call is already in progress for this appointment")

	ErrThreadNotFound = New(NotFound, "THREAD_NOT_FOUND", "Chat thread not found")
	ErrEmptyContent   = New(Validation, "EMPTY_CONTENT", "Message content is required")
)
