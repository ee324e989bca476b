package orders

import "context"

// Store is the Order Store. Only the workflow writes to it.
type Store interface {
	// Create writes the order and its items in one short transaction.
	// Callers finish every remote call before invoking it.
	Create(ctx context.Context, o Order) error
	// Transition moves the order to status to if CanTransition allows it and
	// returns the previous status. Unknown orders yield NotFound, disallowed
	// moves Conflict.
	Transition(ctx context.Context, orderID string, to Status) (prev Status, o Order, err error)
	// List returns orders with their items, oldest first. An empty ownerID lists every order.
	List(ctx context.Context, ownerID string) ([]Order, error)
	Get(ctx context.Context, orderID string) (Order, error)
}

var PostgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS orders(
		id           UUID PRIMARY KEY,
		user_id      TEXT NOT NULL,
		status       TEXT NOT NULL,
		total_amount BIGINT NOT NULL DEFAULT 0,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS order_items(
		id         BIGSERIAL PRIMARY KEY,
		order_id   UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL,
		quantity   INTEGER NOT NULL CHECK (quantity > 0),
		unit_price BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)`,
}

var SQLiteSchema = []string{
	`CREATE TABLE IF NOT EXISTS orders(
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		status       TEXT NOT NULL,
		total_amount INTEGER NOT NULL DEFAULT 0,
		created_at   INTEGER NOT NULL,
		updated_at   INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_items(
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id   TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL,
		quantity   INTEGER NOT NULL CHECK (quantity > 0),
		unit_price INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)`,
}

func attachItems(list []Order, items map[string][]Item) []Order {
	for i := range list {
		if its, ok := items[list[i].ID]; ok {
			list[i].Items = its
		} else {
			list[i].Items = []Item{}
		}
	}
	return list
}
