package inventory

import (
	"context"
	"errors"
	"fmt"
)

var ErrProductNotFound = errors.New("product not found")

// InsufficientStockError reports how much was actually available so the
// caller can tell the customer what to correct.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Ledger is the single authority over available stock. Decrements are
// check-and-set against the stored value; callers must never decide
// sufficiency from a quantity they read earlier.
type Ledger interface {
	// CheckAvailability returns the current available quantity.
	CheckAvailability(ctx context.Context, productID string) (int, error)

	// ReserveAndDecrement atomically reduces stock by qty, or fails with
	// *InsufficientStockError leaving the quantity untouched.
	ReserveAndDecrement(ctx context.Context, productID string, qty int) error

	// Release adds qty back. Compensates a reservation whose checkout
	// attempt failed at a later stage.
	Release(ctx context.Context, productID string, qty int) error
}
