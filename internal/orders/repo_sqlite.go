package orders

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
)

// SQLiteRepo stores orders in a single-file database opened by sqlite.Open.
// Timestamps are kept as unix nanoseconds.
type SQLiteRepo struct{ DB *sql.DB }

func (r *SQLiteRepo) Create(ctx context.Context, o Order) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	ts := o.CreatedAt.UnixNano()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO orders(id, user_id, status, total_amount, created_at, updated_at)
		VALUES (?,?,?,?,?,?)`,
		o.ID, o.UserID, string(o.Status), o.TotalAmount, ts, ts); err != nil {
		return err
	}
	for _, it := range o.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items(order_id, product_id, quantity, unit_price) VALUES (?,?,?,?)`,
			o.ID, it.ProductID, it.Quantity, it.UnitPrice); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepo) Transition(ctx context.Context, orderID string, to Status) (Status, Order, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", Order{}, err
	}
	defer func() { _ = tx.Rollback() }()

	o, err := scanOrderRow(tx.QueryRowContext(ctx,
		`SELECT id, user_id, status, total_amount, created_at FROM orders WHERE id=?`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return "", Order{}, apperr.New(apperr.NotFound, "order %s not found", orderID)
	}
	if err != nil {
		return "", Order{}, err
	}
	prev := o.Status
	if !CanTransition(prev, to) {
		return prev, Order{}, apperr.New(apperr.Conflict, "order %s is %s and cannot become %s", orderID, prev, to)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE orders SET status=?, updated_at=? WHERE id=?`,
		string(to), time.Now().UnixNano(), orderID); err != nil {
		return "", Order{}, err
	}
	if err := tx.Commit(); err != nil {
		return "", Order{}, err
	}
	o.Status = to
	return prev, o, nil
}

func (r *SQLiteRepo) List(ctx context.Context, ownerID string) ([]Order, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, user_id, status, total_amount, created_at FROM orders
		WHERE (? = '' OR user_id = ?)
		ORDER BY created_at, id`, ownerID, ownerID)
	if err != nil {
		return nil, err
	}
	out := []Order{}
	for rows.Next() {
		o, err := scanOrderRow(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	irows, err := r.DB.QueryContext(ctx, `
		SELECT i.order_id, i.product_id, i.quantity, i.unit_price
		FROM order_items i JOIN orders o ON o.id = i.order_id
		WHERE (? = '' OR o.user_id = ?)
		ORDER BY i.id`, ownerID, ownerID)
	if err != nil {
		return nil, err
	}
	items, err := scanItemsSQL(irows)
	if err != nil {
		return nil, err
	}
	return attachItems(out, items), nil
}

func (r *SQLiteRepo) Get(ctx context.Context, orderID string) (Order, error) {
	o, err := scanOrderRow(r.DB.QueryRowContext(ctx,
		`SELECT id, user_id, status, total_amount, created_at FROM orders WHERE id=?`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, apperr.New(apperr.NotFound, "order %s not found", orderID)
	}
	if err != nil {
		return Order{}, err
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT order_id, product_id, quantity, unit_price FROM order_items WHERE order_id=? ORDER BY id`, orderID)
	if err != nil {
		return Order{}, err
	}
	items, err := scanItemsSQL(rows)
	if err != nil {
		return Order{}, err
	}
	return attachItems([]Order{o}, items)[0], nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrderRow(row rowScanner) (Order, error) {
	var (
		o       Order
		status  string
		created int64
	)
	if err := row.Scan(&o.ID, &o.UserID, &status, &o.TotalAmount, &created); err != nil {
		return Order{}, err
	}
	o.Status = Status(status)
	o.CreatedAt = time.Unix(0, created).UTC()
	return o, nil
}

func scanItemsSQL(rows *sql.Rows) (map[string][]Item, error) {
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
