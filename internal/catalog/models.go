package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("product not found")

type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Category      string          `json:"category"`
	StockQuantity int             `json:"stockQuantity"`
	ImageURL      string          `json:"imageUrl"`
	Views         int             `json:"views"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Filter narrows a product listing. Search matches name or description,
// case-insensitively.
type Filter struct {
	Search   string `json:"search,omitempty"`
	Category string `json:"category,omitempty"`
}
