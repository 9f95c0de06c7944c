package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/shop-order-backend/internal/domain/order"
)

// PostgresOrders implements OrderStore. Line items, the shipping address and
// the per-status timestamp map are stored as JSONB snapshots on the order row.
type PostgresOrders struct {
	db *sql.DB
}

func NewPostgresOrders(db *sql.DB) *PostgresOrders {
	return &PostgresOrders{db: db}
}

const orderColumns = `id, user_id, items, subtotal, discount_amount, total_price,
	status, payment_method, payment_status, paid_at, refunded_at, transaction_no,
	coupon_id, coupon_code, shipping_address, tracking_number, note, cancel_reason,
	status_timestamps, created_at, updated_at`

func (s *PostgresOrders) Insert(ctx context.Context, o *order.Order) error {
	q := querier(ctx, s.db)

	items, addr, stamps, err := marshalOrderJSON(o)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		o.ID, o.UserID, items, o.Subtotal, o.DiscountAmount, o.TotalPrice,
		o.Status, o.Payment.Method, o.Payment.Status, o.Payment.PaidAt, o.Payment.RefundedAt,
		o.Payment.TransactionNo, o.CouponID, o.CouponCode, addr,
		nullable(o.TrackingNumber), o.Note, o.CancelReason, stamps, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *PostgresOrders) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return s.get(ctx, id, false)
}

func (s *PostgresOrders) GetForUpdate(ctx context.Context, id string) (*order.Order, error) {
	return s.get(ctx, id, true)
}

func (s *PostgresOrders) get(ctx context.Context, id string, forUpdate bool) (*order.Order, error) {
	q := querier(ctx, s.db)

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	o, err := scanOrder(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	return o, err
}

func (s *PostgresOrders) Update(ctx context.Context, o *order.Order) error {
	q := querier(ctx, s.db)

	items, addr, stamps, err := marshalOrderJSON(o)
	if err != nil {
		return err
	}

	res, err := q.ExecContext(ctx,
		`UPDATE orders SET items = $2, subtotal = $3, discount_amount = $4, total_price = $5,
		   status = $6, payment_method = $7, payment_status = $8, paid_at = $9, refunded_at = $10,
		   transaction_no = $11, coupon_id = $12, coupon_code = $13, shipping_address = $14,
		   tracking_number = $15, note = $16, cancel_reason = $17, status_timestamps = $18,
		   updated_at = $19
		 WHERE id = $1`,
		o.ID, items, o.Subtotal, o.DiscountAmount, o.TotalPrice,
		o.Status, o.Payment.Method, o.Payment.Status, o.Payment.PaidAt, o.Payment.RefundedAt,
		o.Payment.TransactionNo, o.CouponID, o.CouponCode, addr,
		nullable(o.TrackingNumber), o.Note, o.CancelReason, stamps, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if n == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}

func (s *PostgresOrders) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*order.Order, error) {
	return s.List(ctx, OrderFilter{UserID: userID, Limit: limit, Offset: offset})
}

func (s *PostgresOrders) List(ctx context.Context, f OrderFilter) ([]*order.Order, error) {
	q := querier(ctx, s.db)

	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(cond, len(args))
	}
	if f.UserID != "" {
		add(" AND user_id = $%d", f.UserID)
	}
	if f.Status != "" {
		add(" AND status = $%d", string(f.Status))
	}
	if f.PaymentStatus != "" {
		add(" AND payment_status = $%d", string(f.PaymentStatus))
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		add(" LIMIT $%d", f.Limit)
	}
	if f.Offset > 0 {
		add(" OFFSET $%d", f.Offset)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PostgresOrders) ListAbandonedGateway(ctx context.Context, before time.Time) ([]*order.Order, error) {
	q := querier(ctx, s.db)

	rows, err := q.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE payment_method = $1 AND status = $2 AND payment_status = $3 AND created_at < $4`,
		order.PaymentMethodGateway, order.StatusPending, order.PaymentUnpaid, before,
	)
	if err != nil {
		return nil, fmt.Errorf("list abandoned orders: %w", err)
	}
	defer rows.Close()

	var out []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var (
		o              order.Order
		items          []byte
		addr           []byte
		stamps         []byte
		trackingNumber sql.NullString
	)
	err := row.Scan(
		&o.ID, &o.UserID, &items, &o.Subtotal, &o.DiscountAmount, &o.TotalPrice,
		&o.Status, &o.Payment.Method, &o.Payment.Status, &o.Payment.PaidAt, &o.Payment.RefundedAt,
		&o.Payment.TransactionNo, &o.CouponID, &o.CouponCode, &addr,
		&trackingNumber, &o.Note, &o.CancelReason, &stamps, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decode shipping address: %w", err)
	}
	if err := json.Unmarshal(stamps, &o.StatusTimestamps); err != nil {
		return nil, fmt.Errorf("decode status timestamps: %w", err)
	}
	o.TrackingNumber = trackingNumber.String
	return &o, nil
}

func marshalOrderJSON(o *order.Order) (items, addr, stamps []byte, err error) {
	if items, err = json.Marshal(o.Items); err != nil {
		return nil, nil, nil, fmt.Errorf("encode order items: %w", err)
	}
	if addr, err = json.Marshal(o.ShippingAddress); err != nil {
		return nil, nil, nil, fmt.Errorf("encode shipping address: %w", err)
	}
	if o.StatusTimestamps == nil {
		stamps = []byte("{}")
	} else if stamps, err = json.Marshal(o.StatusTimestamps); err != nil {
		return nil, nil, nil, fmt.Errorf("encode status timestamps: %w", err)
	}
	return items, addr, stamps, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
