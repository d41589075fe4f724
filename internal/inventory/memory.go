package inventory

import (
	"context"
	"sync"
)

// MemLedger is an in-process ledger guarded by a mutex. It backs tests and
// single-node deployments without Postgres; the reservation semantics are
// identical to PgLedger.
type MemLedger struct {
	mu    sync.Mutex
	stock map[string]int
}

func NewMemLedger() *MemLedger {
	return &MemLedger{stock: make(map[string]int)}
}

func (m *MemLedger) SetStock(productID string, qty int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[productID] = qty
}

func (m *MemLedger) CheckAvailability(_ context.Context, productID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stock, ok := m.stock[productID]
	if !ok {
		return 0, ErrProductNotFound
	}
	return stock, nil
}

func (m *MemLedger) ReserveAndDecrement(_ context.Context, productID string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stock, ok := m.stock[productID]
	if !ok {
		return ErrProductNotFound
	}
	if stock < qty {
		return &InsufficientStockError{ProductID: productID, Requested: qty, Available: stock}
	}
	m.stock[productID] = stock - qty
	return nil
}

func (m *MemLedger) Release(_ context.Context, productID string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stock[productID]; !ok {
		return ErrProductNotFound
	}
	m.stock[productID] += qty
	return nil
}
