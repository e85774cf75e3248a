package ledger

import (
	"errors"
	"fmt"
)

// Error kinds. Every specific error below wraps exactly one of these, so callers
// can branch with errors.Is on the kind alone.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrInconsistentState = errors.New("inconsistent invoice state")
)

var (
	// ErrEmptyItems is returned when an invoice would be left without line items.
	ErrEmptyItems = fmt.Errorf("%w: invoice must contain at least one item", ErrValidation)

	// ErrIndexOutOfRange is returned when a line index does not address an existing line.
	ErrIndexOutOfRange = fmt.Errorf("%w: line index out of range", ErrValidation)

	ErrInvalidQuantity = fmt.Errorf("%w: quantity must be greater than zero", ErrValidation)
	ErrInvalidPrice    = fmt.Errorf("%w: price must not be negative", ErrValidation)
	ErrInvalidTaxRate  = fmt.Errorf("%w: tax rate must not be negative", ErrValidation)

	// ErrInvalidAmount is returned for payment amounts that are not strictly positive.
	ErrInvalidAmount = fmt.Errorf("%w: amount must be greater than zero", ErrValidation)

	ErrInvalidPaymentMethod = fmt.Errorf("%w: unknown payment method", ErrValidation)

	ErrInvoiceNotFound  = fmt.Errorf("invoice %w", ErrNotFound)
	ErrCustomerNotFound = fmt.Errorf("customer %w", ErrNotFound)
	ErrProductNotFound  = fmt.Errorf("product %w", ErrNotFound)
)

// ValidationError attaches the offending field and value to a validation failure.
type ValidationError struct {
	Field string
	Value interface{}
	Err   error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v (value: %v)", e.Field, e.Err, e.Value)
}

// Unwrap returns the underlying sentinel.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError. A nil err defaults to ErrValidation.
func NewValidationError(field string, value interface{}, err error) *ValidationError {
	if err == nil {
		err = ErrValidation
	}
	return &ValidationError{
		Field: field,
		Value: value,
		Err:   err,
	}
}

// InconsistencyError reports which derived field disagrees with the recomputed value.
type InconsistencyError struct {
	Field    string
	Stored   string
	Expected string
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("%v: %s is %s, expected %s", ErrInconsistentState, e.Field, e.Stored, e.Expected)
}

func (e *InconsistencyError) Unwrap() error {
	return ErrInconsistentState
}
