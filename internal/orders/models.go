package orders

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("order not found")
	ErrForbidden = errors.New("order does not belong to caller")
)

type ShippingAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

func (a ShippingAddress) Validate() error {
	for _, f := range []struct{ name, v string }{
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"zipCode", a.ZipCode},
		{"country", a.Country},
	} {
		if f.v == "" {
			return fmt.Errorf("shipping address %s is required", f.name)
		}
	}
	return nil
}

// Item snapshots the product at purchase time. UnitPrice is fixed when the
// order is created and never tracks later catalog price changes.
type Item struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"price"`
}

func (it Item) Extension() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Total sums line extensions. The stored TotalAmount must always equal this.
func Total(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Extension())
	}
	return total
}

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Items           []Item          `json:"items"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentID       string          `json:"paymentId"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
}
