// Package apperr defines the error taxonomy shared by the club services.
// Controllers translate these sentinels into HTTP statuses; anything not
// listed here is treated as a transport/database failure and surfaced as-is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrVariantNotFound is returned when no equipment variant matches the
	// requested (name, size) pair. Variants are never created implicitly.
	ErrVariantNotFound = errors.New("equipment variant not found")

	// ErrInsufficientStock is returned when an assignment requests more
	// units than the variant currently has available.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidQuantity is returned for quantities below 1 or non-positive
	// stock deltas.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrAlreadyReturned is returned when an assignment is no longer in the
	// "assigned" state.
	ErrAlreadyReturned = errors.New("assignment already returned or closed")

	// ErrAlreadyPaid is returned when marking an already-paid ledger row as paid.
	ErrAlreadyPaid = errors.New("payment already marked as paid")

	// ErrNotPaid is returned when reverting a ledger row that is not paid.
	ErrNotPaid = errors.New("payment is not marked as paid")

	// ErrValidation is the base error for bad input shape or range.
	ErrValidation = errors.New("validation failed")
)

// Validation wraps ErrValidation with a human-readable reason so callers can
// both match with errors.Is and show the message.
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
