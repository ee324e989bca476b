package catalog

import "context"

// Store is the Inventory Store. Reserve must run the availability check and
// the decrement inside one transaction.
type Store interface {
	Reserve(ctx context.Context, productID string, qty int) (unitPrice int64, err error)
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id string) (Product, error)
	Seed(ctx context.Context, products []Product) error
}

var PostgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS products(
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		base_price  BIGINT NOT NULL CHECK (base_price >= 0),
		image_url   TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS inventory(
		id             BIGSERIAL PRIMARY KEY,
		product_id     TEXT NOT NULL REFERENCES products(id),
		location       TEXT NOT NULL,
		stock_quantity INTEGER NOT NULL CHECK (stock_quantity >= 0),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (product_id, location)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_product ON inventory(product_id)`,
}

var SQLiteSchema = []string{
	`CREATE TABLE IF NOT EXISTS products(
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		base_price  INTEGER NOT NULL CHECK (base_price >= 0),
		image_url   TEXT NOT NULL DEFAULT '',
		created_at  INTEGER NOT NULL DEFAULT (strftime('%s','now'))
	)`,
	`CREATE TABLE IF NOT EXISTS inventory(
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id     TEXT NOT NULL REFERENCES products(id),
		location       TEXT NOT NULL,
		stock_quantity INTEGER NOT NULL CHECK (stock_quantity >= 0),
		updated_at     INTEGER NOT NULL DEFAULT (strftime('%s','now')),
		UNIQUE (product_id, location)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_product ON inventory(product_id)`,
}
