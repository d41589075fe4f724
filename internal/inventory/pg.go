package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgLedger keeps stock in the products table. The decrement is a single
// conditional UPDATE, so two concurrent reservations can never jointly push
// the quantity below zero regardless of what either of them read beforehand.
type PgLedger struct{ DB *pgxpool.Pool }

func (l *PgLedger) CheckAvailability(ctx context.Context, productID string) (int, error) {
	var stock int
	err := l.DB.QueryRow(ctx,
		`SELECT stock_quantity FROM products WHERE id = $1`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("check availability %s: %w", productID, err)
	}
	return stock, nil
}

func (l *PgLedger) ReserveAndDecrement(ctx context.Context, productID string, qty int) error {
	ct, err := l.DB.Exec(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity - $2, updated_at = now()
		WHERE id = $1 AND stock_quantity >= $2`,
		productID, qty)
	if err != nil {
		return fmt.Errorf("reserve %s: %w", productID, err)
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	// Nothing changed: either the product is unknown or stock ran short.
	// Re-read only to build the error detail; the decision was already made
	// by the conditional update above.
	available, err := l.CheckAvailability(ctx, productID)
	if err != nil {
		return err
	}
	return &InsufficientStockError{ProductID: productID, Requested: qty, Available: available}
}

func (l *PgLedger) Release(ctx context.Context, productID string, qty int) error {
	ct, err := l.DB.Exec(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + $2, updated_at = now()
		WHERE id = $1`,
		productID, qty)
	if err != nil {
		return fmt.Errorf("release %s: %w", productID, err)
	}
	if ct.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}
