package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
)

// SQLiteRepo is the single-file inventory store. The handle must come from
// sqlite.Open so that transactions are serialised on one connection.
type SQLiteRepo struct{ DB *sql.DB }

func (r *SQLiteRepo) Reserve(ctx context.Context, productID string, qty int) (int64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var price int64
	err = tx.QueryRowContext(ctx, `SELECT base_price FROM products WHERE id=?`, productID).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.New(apperr.NotFound, "product %s not found", productID)
	}
	if err != nil {
		return 0, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, product_id, location, stock_quantity FROM inventory
		WHERE product_id=? ORDER BY id`, productID)
	if err != nil {
		return 0, err
	}
	recs, err := scanStockSQL(rows)
	if err != nil {
		return 0, err
	}

	touched, err := Allocate(recs, qty)
	if err != nil {
		return 0, err
	}
	for _, rec := range touched {
		if _, err := tx.ExecContext(ctx,
			`UPDATE inventory SET stock_quantity=?, updated_at=strftime('%s','now') WHERE id=?`,
			rec.Quantity, rec.ID); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return price, nil
}

func (r *SQLiteRepo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name, description, base_price, image_url FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.BasePrice, &p.ImageURL); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	srows, err := r.DB.QueryContext(ctx, `SELECT id, product_id, location, stock_quantity FROM inventory ORDER BY id`)
	if err != nil {
		return nil, err
	}
	stock, err := scanStockSQL(srows)
	if err != nil {
		return nil, err
	}
	return attachStock(out, stock), nil
}

func (r *SQLiteRepo) GetProduct(ctx context.Context, id string) (Product, error) {
	var p Product
	err := r.DB.QueryRowContext(ctx, `SELECT id, name, description, base_price, image_url FROM products WHERE id=?`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.BasePrice, &p.ImageURL)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, apperr.New(apperr.NotFound, "product %s not found", id)
	}
	if err != nil {
		return Product{}, err
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id, product_id, location, stock_quantity FROM inventory WHERE product_id=? ORDER BY id`, id)
	if err != nil {
		return Product{}, err
	}
	recs, err := scanStockSQL(rows)
	if err != nil {
		return Product{}, err
	}
	return withStock(p, recs), nil
}

func (r *SQLiteRepo) Seed(ctx context.Context, products []Product) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range products {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO products(id, name, description, base_price, image_url)
			VALUES (?,?,?,?,?) ON CONFLICT(id) DO NOTHING`,
			p.ID, p.Name, p.Description, p.BasePrice, p.ImageURL); err != nil {
			return err
		}
		for _, s := range p.Locations {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO inventory(product_id, location, stock_quantity)
				VALUES (?,?,?) ON CONFLICT(product_id, location) DO NOTHING`,
				p.ID, s.Location, s.Quantity); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func scanStockSQL(rows *sql.Rows) ([]StockRecord, error) {
	defer rows.Close()
	var out []StockRecord
	for rows.Next() {
		var s StockRecord
		if err := rows.Scan(&s.ID, &s.ProductID, &s.Location, &s.Quantity); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
