package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/shop-order-backend/internal/domain/coupon"
)

// PostgresCoupons implements CouponStore with conditional single-statement
// usage accounting.
type PostgresCoupons struct {
	db *sql.DB
}

func NewPostgresCoupons(db *sql.DB) *PostgresCoupons {
	return &PostgresCoupons{db: db}
}

func (s *PostgresCoupons) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	q := querier(ctx, s.db)

	var c coupon.Coupon
	err := q.QueryRowContext(ctx,
		`SELECT id, code, active, start_date, end_date, usage_limit, used_count,
		        discount_type, discount_value, max_discount, min_order_value
		 FROM coupons WHERE code = $1`,
		coupon.NormalizeCode(code),
	).Scan(&c.ID, &c.Code, &c.Active, &c.StartDate, &c.EndDate, &c.UsageLimit,
		&c.UsedCount, &c.DiscountType, &c.DiscountValue, &c.MaxDiscount, &c.MinOrderValue)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, coupon.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find coupon: %w", err)
	}
	return &c, nil
}

// IncrementUsage is the atomic check-and-adjust guarding the usage limit; a
// concurrent application racing past validation still fails here.
func (s *PostgresCoupons) IncrementUsage(ctx context.Context, couponID string) error {
	q := querier(ctx, s.db)

	res, err := q.ExecContext(ctx,
		`UPDATE coupons SET used_count = used_count + 1
		 WHERE id = $1 AND (usage_limit = 0 OR used_count < usage_limit)`,
		couponID,
	)
	if err != nil {
		return fmt.Errorf("increment coupon usage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment coupon usage: %w", err)
	}
	if n == 0 {
		return coupon.ErrLimitReached
	}
	return nil
}

// DecrementUsage floors at zero so a double rollback can never go negative.
func (s *PostgresCoupons) DecrementUsage(ctx context.Context, couponID string) error {
	q := querier(ctx, s.db)

	_, err := q.ExecContext(ctx,
		`UPDATE coupons SET used_count = GREATEST(used_count - 1, 0) WHERE id = $1`,
		couponID,
	)
	if err != nil {
		return fmt.Errorf("decrement coupon usage: %w", err)
	}
	return nil
}
