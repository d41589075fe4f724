package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemLedger_ReserveAndDecrement(t *testing.T) {
	l := NewMemLedger()
	l.SetStock("p1", 5)

	err := l.ReserveAndDecrement(context.Background(), "p1", 2)
	require.NoError(t, err)

	stock, err := l.CheckAvailability(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, stock)
}

func TestMemLedger_InsufficientStock(t *testing.T) {
	l := NewMemLedger()
	l.SetStock("p1", 5)

	err := l.ReserveAndDecrement(context.Background(), "p1", 10)
	var ise *InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, 5, ise.Available)
	assert.Equal(t, 10, ise.Requested)

	// A failed reservation leaves no partial state behind.
	stock, err := l.CheckAvailability(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, stock)
}

func TestMemLedger_UnknownProduct(t *testing.T) {
	l := NewMemLedger()

	_, err := l.CheckAvailability(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrProductNotFound))

	err = l.ReserveAndDecrement(context.Background(), "nope", 1)
	assert.True(t, errors.Is(err, ErrProductNotFound))
}

func TestMemLedger_ReleaseRestoresStock(t *testing.T) {
	l := NewMemLedger()
	l.SetStock("p1", 5)

	require.NoError(t, l.ReserveAndDecrement(context.Background(), "p1", 3))
	require.NoError(t, l.Release(context.Background(), "p1", 3))

	stock, err := l.CheckAvailability(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, stock)
}

// With N units in stock, concurrent reservations must never jointly hand out
// more than N, no matter how the attempts interleave.
func TestMemLedger_ConcurrentReservationsNeverOversell(t *testing.T) {
	const stock = 5
	const attempts = 50

	l := NewMemLedger()
	l.SetStock("p1", stock)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.ReserveAndDecrement(context.Background(), "p1", 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, stock, succeeded)

	remaining, err := l.CheckAvailability(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestMemLedger_ConcurrentMultiUnitReservations(t *testing.T) {
	const stock = 10

	l := NewMemLedger()
	l.SetStock("p1", stock)

	var wg sync.WaitGroup
	var mu sync.Mutex
	reservedUnits := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(qty int) {
			defer wg.Done()
			if err := l.ReserveAndDecrement(context.Background(), "p1", qty); err == nil {
				mu.Lock()
				reservedUnits += qty
				mu.Unlock()
			}
		}(i%3 + 1)
	}
	wg.Wait()

	remaining, err := l.CheckAvailability(context.Background(), "p1")
	require.NoError(t, err)
	assert.LessOrEqual(t, reservedUnits, stock)
	assert.Equal(t, stock-reservedUnits, remaining)
}
