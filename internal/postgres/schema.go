package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Statements are idempotent; the service does not ship migration tooling,
// it only guarantees the schema exists before serving traffic.
var ddl = []string{
	`CREATE TABLE IF NOT EXISTS category (
		id        BIGSERIAL PRIMARY KEY,
		name      VARCHAR(255) NOT NULL,
		parent_id BIGINT REFERENCES category(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS product (
		id          BIGSERIAL PRIMARY KEY,
		name        VARCHAR(255) NOT NULL,
		quantity    INT NOT NULL DEFAULT 0,
		price       NUMERIC(10,2) NOT NULL,
		category_id BIGINT NOT NULL REFERENCES category(id)
	)`,
	`CREATE TABLE IF NOT EXISTS client (
		id      BIGSERIAL PRIMARY KEY,
		name    VARCHAR(255) NOT NULL,
		address TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id         BIGSERIAL PRIMARY KEY,
		client_id  BIGINT NOT NULL REFERENCES client(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS order_item (
		id         BIGSERIAL PRIMARY KEY,
		order_id   BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL REFERENCES product(id),
		quantity   INT NOT NULL CHECK (quantity > 0),
		UNIQUE (order_id, product_id)
	)`,
}

// Migrate materializes the five tables if they are missing.
// UNIQUE(order_id, product_id) backs the one-line-item-per-product rule.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range ddl {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
