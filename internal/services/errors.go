// Package services defines the business logic for view tracking, lead
// intake, and the newsletter registry. This file centralizes common
// service-level error values and the validation error type so that they can
// be consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer;
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrPostNotFound indicates that the requested article does not exist
	// or is not published.
	ErrPostNotFound = errors.New("post not found")

	// ErrEmailRequired is returned when a newsletter signup arrives with an
	// empty email address.
	ErrEmailRequired = errors.New("email is required")

	// ErrInvalidEmail is returned when an email address fails the
	// local@domain.tld shape check.
	ErrInvalidEmail = errors.New("email is invalid")

	// ErrAlreadySubscribed is the declined-duplicate outcome for a signup
	// whose email already belongs to an active subscriber. It is expected
	// behavior, not a validation failure, and callers must be able to tell
	// the two apart.
	ErrAlreadySubscribed = errors.New("email already subscribed")

	// ErrLeadNotFound indicates that a stored submission does not exist
	// (admin resend path).
	ErrLeadNotFound = errors.New("lead not found")
)

// ValidationError reports a missing or blank required form field. The field
// name is carried so the caller can re-display the form with the offending
// input highlighted.
type ValidationError struct {
	Field string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("required field %q is missing", e.Field)
}

// missingField is a small constructor used by the intake services.
func missingField(name string) error {
	return &ValidationError{Field: name}
}

// AsValidationError unwraps err into a *ValidationError when possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
