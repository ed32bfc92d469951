package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrForbidden is returned when the acting principal lacks permission for an operation.
	ErrForbidden = errors.New("application: forbidden")
	// ErrUnauthenticated is returned when no valid identity accompanies the request.
	ErrUnauthenticated = errors.New("application: unauthenticated")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned when login credentials do not match.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
)

// Rule codes carried by ValidationError.Reason in addition to the interval codes from the scheduler package.
const (
	ReasonActiveReservations   = "ACTIVE_RESERVATIONS"
	ReasonAlreadyCancelled     = "ALREADY_CANCELLED"
	ReasonAlreadyCompleted     = "ALREADY_COMPLETED"
	ReasonReservationNotActive = "RESERVATION_NOT_ACTIVE"
	ReasonReservationNotFound  = "RESERVATION_NOT_FOUND"
	ReasonInvalidInput         = "INVALID_INPUT"
)

// ValidationError captures rejected input. Reason names the violated rule and
// FieldErrors holds per-field messages when the input was a form.
type ValidationError struct {
	Reason      string
	Message     string
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if v.Message != "" {
		return v.Message
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any issue was recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && (v.Message != "" || len(v.FieldErrors) > 0)
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if v.Reason == "" {
		v.Reason = ReasonInvalidInput
	}
	v.FieldErrors[field] = message
}

func newValidationError(reason, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports ACTIVE reservations overlapping a requested interval.
// CanOverride is set when the requester may resubmit with an explicit override.
type ConflictError struct {
	Message     string
	Conflicts   []Conflict
	CanOverride bool
}

// Error implements the error interface.
func (c *ConflictError) Error() string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("%s (%d conflicting reservation(s))", c.Message, len(c.Conflicts))
}
