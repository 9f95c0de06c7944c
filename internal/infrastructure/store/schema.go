package store

import "database/sql"

// EnsureSchema creates the tables and indexes the stores rely on. Statements
// are idempotent so the call is safe on every startup.
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			name          TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL DEFAULT 'customer',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			sold_count BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS variants (
			id             TEXT PRIMARY KEY,
			product_id     TEXT NOT NULL REFERENCES products(id),
			sku            TEXT NOT NULL DEFAULT '',
			name           TEXT NOT NULL DEFAULT '',
			price          BIGINT NOT NULL,
			original_price BIGINT NOT NULL DEFAULT 0,
			stock          INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS coupons (
			id              TEXT PRIMARY KEY,
			code            TEXT NOT NULL UNIQUE,
			active          BOOLEAN NOT NULL DEFAULT true,
			start_date      TIMESTAMPTZ NOT NULL,
			end_date        TIMESTAMPTZ NOT NULL,
			usage_limit     INTEGER NOT NULL DEFAULT 0,
			used_count      INTEGER NOT NULL DEFAULT 0 CHECK (used_count >= 0),
			discount_type   TEXT NOT NULL,
			discount_value  BIGINT NOT NULL,
			max_discount    BIGINT NOT NULL DEFAULT 0,
			min_order_value BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id                TEXT PRIMARY KEY,
			user_id           TEXT NOT NULL,
			items             JSONB NOT NULL,
			subtotal          BIGINT NOT NULL,
			discount_amount   BIGINT NOT NULL DEFAULT 0,
			total_price       BIGINT NOT NULL CHECK (total_price >= 0),
			status            TEXT NOT NULL,
			payment_method    TEXT NOT NULL,
			payment_status    TEXT NOT NULL,
			paid_at           TIMESTAMPTZ,
			refunded_at       TIMESTAMPTZ,
			transaction_no    TEXT NOT NULL DEFAULT '',
			coupon_id         TEXT NOT NULL DEFAULT '',
			coupon_code       TEXT NOT NULL DEFAULT '',
			shipping_address  JSONB NOT NULL,
			tracking_number   TEXT,
			note              TEXT NOT NULL DEFAULT '',
			cancel_reason     TEXT NOT NULL DEFAULT '',
			status_timestamps JSONB NOT NULL DEFAULT '{}',
			created_at        TIMESTAMPTZ NOT NULL,
			updated_at        TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS orders_tracking_number_idx
			ON orders (tracking_number) WHERE tracking_number IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS orders_user_id_idx ON orders (user_id)`,
		`CREATE INDEX IF NOT EXISTS orders_status_idx ON orders (status)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
