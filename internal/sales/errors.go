package sales

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSaleData is a local validation failure; it never reaches the
	// store and is always recoverable by correcting the input.
	ErrInvalidSaleData = errors.New("invalid sale data")
	// ErrProductNotFound means the referenced product does not exist at
	// check time.
	ErrProductNotFound = errors.New("product not found")
	// ErrInsufficientStock means the product exists but its stock is below
	// the requested quantity.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// PersistenceError wraps a store failure on the sale write. No stock
// mutation has happened when it is returned.
type PersistenceError struct {
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("sale persistence failed: %v", e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// PartialRegistrationError means the sale record was persisted but the
// subsequent stock decrement failed, leaving inventory stale. The sale is
// registered (SaleID is valid); the caller must not retry the whole
// transaction.
type PartialRegistrationError struct {
	SaleID string
	Cause  error
}

func (e *PartialRegistrationError) Error() string {
	return fmt.Sprintf("sale %s registered but stock decrement failed: %v", e.SaleID, e.Cause)
}

func (e *PartialRegistrationError) Unwrap() error {
	return e.Cause
}

// Error kinds as reported on the notification channel.
const (
	KindInvalidSaleData     = "InvalidSaleData"
	KindProductNotFound     = "ProductNotFound"
	KindInsufficientStock   = "InsufficientStock"
	KindPersistenceFailure  = "PersistenceFailure"
	KindPartialRegistration = "PartialRegistration"
)

// ErrorKind maps a registration error to its taxonomy kind. Every error the
// registrar returns classifies; nothing escapes unclassified.
func ErrorKind(err error) string {
	var persistence *PersistenceError
	var partial *PartialRegistrationError
	switch {
	case errors.Is(err, ErrInvalidSaleData):
		return KindInvalidSaleData
	case errors.Is(err, ErrProductNotFound):
		return KindProductNotFound
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	case errors.As(err, &partial):
		return KindPartialRegistration
	case errors.As(err, &persistence):
		return KindPersistenceFailure
	default:
		return KindPersistenceFailure
	}
}
