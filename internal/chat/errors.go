package chat

import "fmt"

// ValidationError reports input that fails shape or length constraints.
// Recoverable: the caller corrects the field and resubmits.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// AuthorizationError reports a denied permission check.
type AuthorizationError struct {
	Action string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("not authorized to %s", e.Action)
}

// NotFoundError reports a missing channel or user.
type NotFoundError struct {
	Resource string
	Name     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Name)
}

// ConflictError reports a unique-constraint collision, shown as a
// field-level validation error by the caller.
type ConflictError struct {
	Field  string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Field, e.Reason)
}

// ParseError reports a malformed search-result row. Logged and surfaced
// as a generic unavailable state, never fatal to the whole listing.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse search results: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
