/*
errors.go - Error types for the ledger engine

ERROR CATEGORIES:
  1. Input errors - empty customer, bad date, zero amount
  2. Reconciliation errors - payments for a customer with no sales
  3. Store errors - unknown event id on delete

Callers match with errors.Is / errors.As. Nothing here is retryable: the
engine has no retry policy.
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrUnreconcilableCustomer is returned when a payment event references a
	// customer with no recorded sales, so no remaining balance exists.
	ErrUnreconcilableCustomer = errors.New("unreconcilable customer")

	// ErrEventNotFound is returned when deleting an event id that is not in the store.
	ErrEventNotFound = errors.New("payment event not found")

	// ErrMissingCustomer is returned when a write has an empty customer.
	ErrMissingCustomer = errors.New("customer is required")

	// ErrInvalidDate is returned when a date string matches no accepted layout.
	ErrInvalidDate = errors.New("invalid date")

	// ErrEmptyAmount is returned when a payment or discount amounts to zero.
	ErrEmptyAmount = errors.New("amount must be greater than zero")

	// ErrInvalidKind is returned for an event kind other than payment/discount.
	ErrInvalidKind = errors.New("invalid event kind")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// UnreconcilableCustomerError names the customer that could not be reconciled.
type UnreconcilableCustomerError struct {
	Customer string
	EventID  EventID
}

func (e *UnreconcilableCustomerError) Error() string {
	if e.EventID == "" {
		return fmt.Sprintf("unreconcilable customer %q: no sales recorded", e.Customer)
	}
	return fmt.Sprintf("unreconcilable customer %q: no sales recorded (event %s)", e.Customer, e.EventID)
}

func (e *UnreconcilableCustomerError) Unwrap() error {
	return ErrUnreconcilableCustomer
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingCustomer) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrEmptyAmount) ||
		errors.Is(err, ErrInvalidKind)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEventNotFound)
}
