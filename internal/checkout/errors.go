package checkout

import (
	"errors"
	"fmt"
)

// ErrSettlementInconsistency marks the one state compensation cannot fix:
// the provider confirmed a charge but no matching order was recorded.
// It must never be presented to the customer as retryable; a retry could
// charge them twice. Operators reconcile these via the incident stream.
var ErrSettlementInconsistency = errors.New("payment settled but order was not recorded")

// ValidationError is a user-correctable problem with the request itself.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}
