package catalog

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the Postgres inventory store.
type Repo struct{ DB *pgxpool.Pool }

// Reserve: lock product row + its stock rows (FOR UPDATE) -> allocate -> write back.
// Concurrent reservations of the same product queue on the product row lock,
// so the second one always sees the first one's decrement.
func (r *Repo) Reserve(ctx context.Context, productID string, qty int) (int64, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var price int64
	err = tx.QueryRow(ctx, `SELECT base_price FROM products WHERE id=$1 FOR UPDATE`, productID).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperr.New(apperr.NotFound, "product %s not found", productID)
	}
	if err != nil {
		return 0, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, product_id, location, stock_quantity FROM inventory
		WHERE product_id=$1 ORDER BY id FOR UPDATE`, productID)
	if err != nil {
		return 0, err
	}
	recs, err := scanStock(rows)
	if err != nil {
		return 0, err
	}

	touched, err := Allocate(recs, qty)
	if err != nil {
		return 0, err // rollback via defer
	}
	for _, rec := range touched {
		if _, err := tx.Exec(ctx, `UPDATE inventory SET stock_quantity=$2, updated_at=now() WHERE id=$1`,
			rec.ID, rec.Quantity); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return price, nil
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, description, base_price, image_url FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.BasePrice, &p.ImageURL); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	srows, err := r.DB.Query(ctx, `SELECT id, product_id, location, stock_quantity FROM inventory ORDER BY id`)
	if err != nil {
		return nil, err
	}
	stock, err := scanStock(srows)
	if err != nil {
		return nil, err
	}
	return attachStock(out, stock), nil
}

func (r *Repo) GetProduct(ctx context.Context, id string) (Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `SELECT id, name, description, base_price, image_url FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.BasePrice, &p.ImageURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, apperr.New(apperr.NotFound, "product %s not found", id)
	}
	if err != nil {
		return Product{}, err
	}

	rows, err := r.DB.Query(ctx, `SELECT id, product_id, location, stock_quantity FROM inventory WHERE product_id=$1 ORDER BY id`, id)
	if err != nil {
		return Product{}, err
	}
	recs, err := scanStock(rows)
	if err != nil {
		return Product{}, err
	}
	return withStock(p, recs), nil
}

// Seed inserts products and stock that are not there yet; existing stock is left alone.
func (r *Repo) Seed(ctx context.Context, products []Product) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, p := range products {
		if _, err := tx.Exec(ctx, `
			INSERT INTO products(id, name, description, base_price, image_url)
			VALUES ($1,$2,$3,$4,$5) ON CONFLICT (id) DO NOTHING`,
			p.ID, p.Name, p.Description, p.BasePrice, p.ImageURL); err != nil {
			return err
		}
		for _, s := range p.Locations {
			if _, err := tx.Exec(ctx, `
				INSERT INTO inventory(product_id, location, stock_quantity)
				VALUES ($1,$2,$3) ON CONFLICT (product_id, location) DO NOTHING`,
				p.ID, s.Location, s.Quantity); err != nil {
				return err
			}
		}
	}
	return tx.Commit(ctx)
}

func scanStock(rows pgx.Rows) ([]StockRecord, error) {
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

func attachStock(products []Product, stock []StockRecord) []Product {
	byProduct := make(map[string][]StockRecord, len(products))
	for _, s := range stock {
		byProduct[s.ProductID] = append(byProduct[s.ProductID], s)
	}
	for i := range products {
		products[i] = withStock(products[i], byProduct[products[i].ID])
	}
	return products
}
