package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Store persists committed orders. Read paths take the caller's user id and
// refuse to hand back orders the caller does not own.
type Store interface {
	Create(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, orderID, callerID string) (*Order, error)
	FindByUser(ctx context.Context, userID string) ([]Order, error)
}

type PgStore struct{ DB *pgxpool.Pool }

func (s *PgStore) Create(ctx context.Context, o *Order) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin order tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, status, total_amount, payment_id,
			ship_street, ship_city, ship_state, ship_zip, ship_country, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		o.ID, o.UserID, string(o.Status), o.TotalAmount.String(), o.PaymentID,
		o.ShippingAddress.Street, o.ShippingAddress.City, o.ShippingAddress.State,
		o.ShippingAddress.ZipCode, o.ShippingAddress.Country, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, name, qty, unit_price)
			VALUES ($1,$2,$3,$4,$5)`,
			o.ID, it.ProductID, it.Name, it.Quantity, it.UnitPrice.String())
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

func (s *PgStore) FindByID(ctx context.Context, orderID, callerID string) (*Order, error) {
	o, err := s.scanOrder(s.DB.QueryRow(ctx, `
		SELECT id, user_id, status, total_amount::text, payment_id,
			ship_street, ship_city, ship_state, ship_zip, ship_country, created_at
		FROM orders WHERE id = $1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order %s: %w", orderID, err)
	}
	if o.UserID != callerID {
		return nil, ErrForbidden
	}
	if err := s.loadItems(ctx, map[string]*Order{o.ID: o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *PgStore) FindByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, user_id, status, total_amount::text, payment_id,
			ship_street, ship_city, ship_state, ship_zip, ship_country, created_at
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("find orders for user %s: %w", userID, err)
	}
	defer rows.Close()

	var found []*Order
	byID := make(map[string]*Order)
	for rows.Next() {
		o, err := s.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, o)
		byID[o.ID] = o
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.loadItems(ctx, byID); err != nil {
		return nil, err
	}

	out := make([]Order, 0, len(found))
	for _, o := range found {
		out = append(out, *o)
	}
	return out, nil
}

// UpdateStatus applies a fulfillment transition, rejecting anything the
// status machine does not allow.
func (s *PgStore) UpdateStatus(ctx context.Context, orderID string, next Status) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var cur string
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&cur)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if !CanTransition(Status(cur), next) {
		return fmt.Errorf("invalid status transition %s -> %s", cur, next)
	}
	if _, err := tx.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, orderID, string(next)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PgStore) scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var status, total string
	if err := row.Scan(&o.ID, &o.UserID, &status, &total, &o.PaymentID,
		&o.ShippingAddress.Street, &o.ShippingAddress.City, &o.ShippingAddress.State,
		&o.ShippingAddress.ZipCode, &o.ShippingAddress.Country, &o.CreatedAt); err != nil {
		return nil, err
	}
	amt, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	o.Status = Status(status)
	o.TotalAmount = amt
	return &o, nil
}

func (s *PgStore) loadItems(ctx context.Context, byID map[string]*Order) error {
	if len(byID) == 0 {
		return nil
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	rows, err := s.DB.Query(ctx, `
		SELECT order_id, product_id, name, qty, unit_price::text
		FROM order_items WHERE order_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID, price string
		var it Item
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.Quantity, &price); err != nil {
			return err
		}
		amt, err := decimal.NewFromString(price)
		if err != nil {
			return fmt.Errorf("parse item price: %w", err)
		}
		it.UnitPrice = amt
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}
