package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the retrieval engine. Callers branch on these with
// errors.Is; everything else is an upstream failure and propagates as-is.
var (
	ErrEmptyQuery         = errors.New("query text is empty")
	ErrEmptyInventory     = errors.New("inventory source is empty")
	ErrNotInitialized     = errors.New("vector index not initialized")
	ErrUnsupportedBackend = errors.New("unsupported index backend")
	ErrItemNotFound       = errors.New("inventory item not found")
	ErrInvalidItem        = errors.New("invalid inventory item")
	ErrTenantRequired     = errors.New("dealership id is required")
)

// ValidationError wraps a sentinel with field context. Validation failures
// are rejected before any I/O happens.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// ValidateItem checks the fields every indexed item must carry. Year, make,
// and model are required because they drive both the embedding text and the
// dedup key; the rest degrade gracefully.
func ValidateItem(v InventoryItem) error {
	if v.ID == "" {
		return NewValidationError("id", "", ErrInvalidItem)
	}
	if v.DealershipID == "" {
		return NewValidationError("dealership_id", "", ErrTenantRequired)
	}
	if v.Make == "" {
		return NewValidationError("make", "", ErrInvalidItem)
	}
	if v.Model == "" {
		return NewValidationError("model", "", ErrInvalidItem)
	}
	if v.Year == 0 {
		return NewValidationError("year", "0", ErrInvalidItem)
	}
	if v.Status != "" && !ValidItemStatuses[v.Status] {
		return NewValidationError("status", string(v.Status), ErrInvalidItem)
	}
	return nil
}
