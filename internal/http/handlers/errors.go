// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP responses
// (via the `fail()` helper in this package). These codes provide clients with a stable,
// machine-readable error taxonomy that supplements human-readable messages.
//
// Conventions:
//   - Codes are lowercase, snake_case, and domain-agnostic unless explicitly noted.
//   - Generic codes (e.g., bad_request, conflict) mirror common HTTP status
//     semantics to aid interoperability.
//   - Domain-specific codes (e.g., validation_failed, already_subscribed) are
//     reserved for business outcomes that cannot be conveyed by status alone.
//     In particular, already_subscribed is a declined duplicate, not a
//     validation failure — clients render the two differently.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeValidationFailed  = "validation_failed"
	ErrCodeAlreadySubscribed = "already_subscribed"
	ErrCodeSubmitFailed      = "submit_failed"
	ErrCodeListFailed        = "list_failed"
	ErrCodeExportFailed      = "export_failed"
	ErrCodeRelayFailed       = "relay_failed"
	ErrCodeMethodNotAllowed  = "method_not_allowed"
)
