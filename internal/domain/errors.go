// Package domain contains the core business entities for the Aurelius catalogue service.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// Identity Errors
	// ===========================================

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateIdentity indicates a user with the same username or
	// email already exists (and it is not the same (username, email) pair).
	ErrDuplicateIdentity = errors.New("username or email already taken")

	// ErrForbiddenUsername indicates the username is on the reserved list.
	ErrForbiddenUsername = errors.New("username is not allowed")

	// ===========================================
	// Confirmation Code Errors
	// ===========================================

	// ErrCodeNotFound indicates the user has no confirmation code on record.
	ErrCodeNotFound = errors.New("confirmation code not found")

	// ErrInvalidCode indicates the submitted code does not match the stored one.
	ErrInvalidCode = errors.New("invalid confirmation code")

	// ErrCodeExpired indicates the stored code is past its TTL.
	ErrCodeExpired = errors.New("confirmation code has expired")

	// ErrResendTooSoon indicates a reissue was requested before the
	// cooldown window elapsed. Usually carried inside a TooSoonError.
	ErrResendTooSoon = errors.New("confirmation code was issued recently")

	// ===========================================
	// Catalogue Errors
	// ===========================================

	// ErrCategoryNotFound indicates the requested category does not exist.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrGenreNotFound indicates the requested genre does not exist.
	ErrGenreNotFound = errors.New("genre not found")

	// ErrTitleNotFound indicates the requested title does not exist.
	ErrTitleNotFound = errors.New("title not found")

	// ErrDuplicateSlug indicates a category or genre with the slug exists.
	ErrDuplicateSlug = errors.New("slug already exists")

	// ===========================================
	// Review & Comment Errors
	// ===========================================

	// ErrReviewNotFound indicates the requested review does not exist.
	ErrReviewNotFound = errors.New("review not found")

	// ErrCommentNotFound indicates the requested comment does not exist.
	ErrCommentNotFound = errors.New("comment not found")

	// ErrDuplicateReview indicates the author already reviewed the title.
	ErrDuplicateReview = errors.New("title already reviewed by this user")

	// ===========================================
	// Authentication/Authorization Errors
	// ===========================================

	// ErrAccessDenied indicates the actor does not have permission.
	ErrAccessDenied = errors.New("access denied")

	// ErrUnauthenticated indicates the request carries no valid identity.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrInvalidToken indicates the bearer token could not be verified.
	ErrInvalidToken = errors.New("invalid token")
)

// ErrValidation is the sentinel all field validation errors unwrap to.
var ErrValidation = errors.New("validation failed")

// ValidationError is a user-correctable bad field value: a future release
// year, an empty genre list, a score out of range. It names the field so
// the API can surface field-level detail.
type ValidationError struct {
	// Field is the offending field name as it appears on the wire.
	Field string

	// Message describes what is wrong with the value.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap makes errors.Is(err, ErrValidation) work.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a field-level validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// TooSoonError is a rate-limit rejection of a confirmation code reissue.
// It carries the wait time the caller must surface.
type TooSoonError struct {
	// RetryAfter is how long the caller must wait before retrying.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *TooSoonError) Error() string {
	return fmt.Sprintf("%s: retry after %ds", ErrResendTooSoon, e.RetryAfterSeconds())
}

// Unwrap makes errors.Is(err, ErrResendTooSoon) work.
func (e *TooSoonError) Unwrap() error {
	return ErrResendTooSoon
}

// RetryAfterSeconds returns the wait time in whole seconds, rounded up so
// a client that waits exactly this long is outside the cooldown.
func (e *TooSoonError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying domain error.
	Err error

	// Message provides additional context.
	Message string

	// Resource identifies the affected resource (e.g., username, slug).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err.Error(), e.Message, e.Resource)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{Err: err, Message: message, Resource: resource}
}
