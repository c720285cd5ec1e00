/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All billing error kinds in one place. The API layer translates these
  into HTTP statuses; nothing here is retried or swallowed internally.

ERROR CATEGORIES:
  1. Input errors - malformed or out-of-range arguments
  2. Lookup errors - referenced records that do not exist
  3. Settlement errors - double-payment guard
  4. Storage errors - the transactional store could not commit

USAGE:
  if errors.Is(err, billing.ErrAlreadySettled) {
      // idempotency guard fired; no second payment was created
  }
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is returned for malformed arguments such as a
	// non-positive installment count or a zero start date.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when a referenced concept, plan, or
	// installment does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadySettled is returned when paying an installment that is
	// already paid. This is a hard business rule, not an optimization:
	// exactly one payment may ever settle an installment.
	ErrAlreadySettled = errors.New("installment already settled")

	// ErrStorageFailure is returned when the underlying store could not
	// commit. Partial effects are rolled back in full.
	ErrStorageFailure = errors.New("storage failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError identifies which record was missing.
type NotFoundError struct {
	Kind string // "concept", "plan", "installment"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// AlreadySettledError reports the payment that already settled an installment.
type AlreadySettledError struct {
	InstallmentID InstallmentID
	PaymentID     PaymentID
}

func (e *AlreadySettledError) Error() string {
	if e.PaymentID != "" {
		return fmt.Sprintf("installment %s already settled by payment %s", e.InstallmentID, e.PaymentID)
	}
	return fmt.Sprintf("installment %s already settled", e.InstallmentID)
}

func (e *AlreadySettledError) Unwrap() error { return ErrAlreadySettled }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// or a business-rule violation rather than a system fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrAlreadySettled)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
