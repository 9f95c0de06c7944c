package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresCatalog implements CatalogStore over the products/variants tables.
type PostgresCatalog struct {
	db *sql.DB
}

func NewPostgresCatalog(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

func (s *PostgresCatalog) GetVariant(ctx context.Context, productID, variantID string) (*Variant, error) {
	q := querier(ctx, s.db)

	var v Variant
	err := q.QueryRowContext(ctx,
		`SELECT v.id, v.product_id, p.name, v.name, v.sku, v.price, v.original_price, v.stock
		 FROM variants v
		 JOIN products p ON p.id = v.product_id
		 WHERE v.id = $1 AND v.product_id = $2`,
		variantID, productID,
	).Scan(&v.ID, &v.ProductID, &v.ProductName, &v.Name, &v.SKU, &v.Price, &v.OriginalPrice, &v.Stock)
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish a missing product from a missing variant.
		var exists bool
		if perr := q.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID,
		).Scan(&exists); perr == nil && !exists {
			return nil, ErrProductNotFound
		}
		return nil, ErrVariantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get variant: %w", err)
	}
	return &v, nil
}

// ReserveStock is a single conditional decrement so concurrent reservations
// against the same variant serialize on the row without a separate read.
func (s *PostgresCatalog) ReserveStock(ctx context.Context, variantID string, qty int) error {
	q := querier(ctx, s.db)

	res, err := q.ExecContext(ctx,
		`UPDATE variants SET stock = stock - $2 WHERE id = $1 AND stock >= $2`,
		variantID, qty,
	)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}
	if n == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (s *PostgresCatalog) ReleaseStock(ctx context.Context, variantID string, qty int) error {
	q := querier(ctx, s.db)

	_, err := q.ExecContext(ctx,
		`UPDATE variants SET stock = stock + $2 WHERE id = $1`,
		variantID, qty,
	)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	return nil
}

func (s *PostgresCatalog) IncrementSales(ctx context.Context, productID string, qty int) error {
	q := querier(ctx, s.db)

	_, err := q.ExecContext(ctx,
		`UPDATE products SET sold_count = sold_count + $2 WHERE id = $1`,
		productID, qty,
	)
	if err != nil {
		return fmt.Errorf("increment sales: %w", err)
	}
	return nil
}
