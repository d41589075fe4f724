package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repo struct{ DB *pgxpool.Pool }

const productCols = `id, name, description, price::text, category, stock_quantity, image_url, views, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	var price string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.Category,
		&p.StockQuantity, &p.ImageURL, &p.Views, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	p.Price = d
	return &p, nil
}

func (r *Repo) Get(ctx context.Context, id string) (*Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx,
		`SELECT `+productCols+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

func (r *Repo) List(ctx context.Context, f Filter) ([]Product, error) {
	q := `SELECT ` + productCols + ` FROM products`
	args := []any{}
	where := ""
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where = ` WHERE (name ILIKE $1 OR description ILIKE $1)`
	}
	if f.Category != "" {
		args = append(args, f.Category)
		if where == "" {
			where = fmt.Sprintf(` WHERE category = $%d`, len(args))
		} else {
			where += fmt.Sprintf(` AND category = $%d`, len(args))
		}
	}
	q += where + ` ORDER BY name`

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// IncrementViews bumps the view counter; a lost update here is harmless.
func (r *Repo) IncrementViews(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `UPDATE products SET views = views + 1 WHERE id = $1`, id)
	return err
}
