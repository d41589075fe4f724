package orders

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotal(t *testing.T) {
	items := []Item{
		{ProductID: "p1", Quantity: 3, UnitPrice: decimal.RequireFromString("19.99")},
		{ProductID: "p2", Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
	}
	assert.True(t, Total(items).Equal(decimal.RequireFromString("64.97")))
}

func TestShippingAddress_Validate(t *testing.T) {
	valid := ShippingAddress{
		Street: "1 Main St", City: "Springfield", State: "IL",
		ZipCode: "62704", Country: "US",
	}
	require.NoError(t, valid.Validate())

	missingZip := valid
	missingZip.ZipCode = ""
	err := missingZip.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zipCode")
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusProcessing, StatusShipped))
	assert.True(t, CanTransition(StatusProcessing, StatusCancelled))
	assert.True(t, CanTransition(StatusShipped, StatusDelivered))

	assert.False(t, CanTransition(StatusDelivered, StatusProcessing))
	assert.False(t, CanTransition(StatusCancelled, StatusShipped))
	assert.False(t, CanTransition(StatusShipped, StatusCancelled))
}
