package orders

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the Postgres order store.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Create(ctx context.Context, o Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, status, total_amount, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$5)`,
		o.ID, o.UserID, string(o.Status), o.TotalAmount, o.CreatedAt); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, it := range o.Items {
		batch.Queue(`
			INSERT INTO order_items(order_id, product_id, quantity, unit_price)
			VALUES ($1,$2,$3,$4)`,
			o.ID, it.ProductID, it.Quantity, it.UnitPrice)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// parseID keeps lookups on the uuid primary key; anything that is not a
// uuid cannot name an order.
func parseID(orderID string) (uuid.UUID, error) {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return uuid.UUID{}, apperr.New(apperr.NotFound, "order %s not found", orderID)
	}
	return id, nil
}

// Transition locks the order row (FOR UPDATE) so concurrent moves of the same
// order are decided against the committed status.
func (r *Repo) Transition(ctx context.Context, orderID string, to Status) (Status, Order, error) {
	id, err := parseID(orderID)
	if err != nil {
		return "", Order{}, err
	}
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		o    Order
		prev string
	)
	err = tx.QueryRow(ctx, `
		SELECT id::text, user_id, status, total_amount, created_at FROM orders
		WHERE id=$1 FOR UPDATE`, id).
		Scan(&o.ID, &o.UserID, &prev, &o.TotalAmount, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", Order{}, apperr.New(apperr.NotFound, "order %s not found", orderID)
	}
	if err != nil {
		return "", Order{}, err
	}
	if !CanTransition(Status(prev), to) {
		return Status(prev), Order{}, apperr.New(apperr.Conflict, "order %s is %s and cannot become %s", orderID, prev, to)
	}
	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, id, string(to)); err != nil {
		return "", Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", Order{}, err
	}
	o.Status = to
	return Status(prev), o, nil
}

func (r *Repo) List(ctx context.Context, ownerID string) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id::text, user_id, status, total_amount, created_at FROM orders
		WHERE ($1 = '' OR user_id = $1)
		ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, err
	}
	out := []Order{}
	for rows.Next() {
		var (
			o      Order
			status string
		)
		if err := rows.Scan(&o.ID, &o.UserID, &status, &o.TotalAmount, &o.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		o.Status = Status(status)
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	irows, err := r.DB.Query(ctx, `
		SELECT i.order_id::text, i.product_id, i.quantity, i.unit_price
		FROM order_items i JOIN orders o ON o.id = i.order_id
		WHERE ($1 = '' OR o.user_id = $1)
		ORDER BY i.id`, ownerID)
	if err != nil {
		return nil, err
	}
	items, err := scanItems(irows)
	if err != nil {
		return nil, err
	}
	return attachItems(out, items), nil
}

func (r *Repo) Get(ctx context.Context, orderID string) (Order, error) {
	id, err := parseID(orderID)
	if err != nil {
		return Order{}, err
	}
	var (
		o      Order
		status string
	)
	err = r.DB.QueryRow(ctx, `
		SELECT id::text, user_id, status, total_amount, created_at FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.UserID, &status, &o.TotalAmount, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.New(apperr.NotFound, "order %s not found", orderID)
	}
	if err != nil {
		return Order{}, err
	}
	o.Status = Status(status)

	rows, err := r.DB.Query(ctx, `
		SELECT order_id::text, product_id, quantity, unit_price FROM order_items
		WHERE order_id=$1 ORDER BY id`, id)
	if err != nil {
		return Order{}, err
	}
	items, err := scanItems(rows)
	if err != nil {
		return Order{}, err
	}
	return attachItems([]Order{o}, items)[0], nil
}

func scanItems(rows pgx.Rows) (map[string][]Item, error) {
	defer rows.Close()
	out := map[string][]Item{}
	for rows.Next() {
		var (
			orderID string
			it      Item
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], it)
	}
	return out, rows.Err()
}
