// Package trust implements the confidence scoring and dispute resolution
// subsystem: vote aggregation, the dispute lifecycle state machine, and
// the provisional edit window that gates who may correct a disputed
// product.
package trust

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input rejected before any I/O.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Msg
}

// NotFoundError reports a missing product or dispute.
type NotFoundError struct {
	Kind string // "product" or "dispute"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// AuthorizationError reports a denied edit or transition, with the deny
// reason so callers can explain why editing is blocked.
type AuthorizationError struct {
	Reason DenyReason
}

func (e *AuthorizationError) Error() string {
	return "not authorized: " + string(e.Reason)
}

// ConflictError reports a transactional write that lost a race. Callers
// should re-fetch current state and re-evaluate; this is recoverable.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Msg
}

// StoreError wraps an underlying persistence failure. The failed
// operation has no partial effect.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string {
	return "store: " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsAuthorization reports whether err is (or wraps) an AuthorizationError.
func IsAuthorization(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
