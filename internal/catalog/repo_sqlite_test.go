package catalog

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
	"github.com/ariefcatur/go-saga-orders/internal/sqlite"
)

func newSQLiteRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := sqlite.Migrate(ctx, db, SQLiteSchema); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := &SQLiteRepo{DB: db}
	seed := []Product{
		{ID: "p1", Name: "Product 1", BasePrice: 100, Locations: []StockRecord{{Location: "A", Quantity: 5}, {Location: "B", Quantity: 10}}},
		{ID: "p2", Name: "Product 2", BasePrice: 250, Locations: []StockRecord{{Location: "A", Quantity: 1}}},
		{ID: "p3", Name: "No stock rows", BasePrice: 10},
	}
	if err := repo.Seed(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return repo
}

func stockOf(t *testing.T, repo *SQLiteRepo, id string) map[string]int {
	t.Helper()
	p, err := repo.GetProduct(context.Background(), id)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	return byLocation(p.Locations)
}

func TestSQLiteReserveLargestFirst(t *testing.T) {
	repo := newSQLiteRepo(t)

	price, err := repo.Reserve(context.Background(), "p1", 12)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if price != 100 {
		t.Errorf("expected unit price 100, got %d", price)
	}
	got := stockOf(t, repo, "p1")
	if got["A"] != 3 || got["B"] != 0 {
		t.Errorf("expected A:3 B:0, got %v", got)
	}
}

func TestSQLiteReserveInsufficientLeavesStock(t *testing.T) {
	repo := newSQLiteRepo(t)

	_, err := repo.Reserve(context.Background(), "p1", 16)
	e, ok := apperr.As(err)
	if !ok || e.Kind != apperr.InsufficientStock || e.Available != 15 {
		t.Fatalf("expected insufficient stock with 15 available, got %v", err)
	}
	got := stockOf(t, repo, "p1")
	if got["A"] != 5 || got["B"] != 10 {
		t.Errorf("stock changed on failure: %v", got)
	}
}

func TestSQLiteReserveUnknownProduct(t *testing.T) {
	repo := newSQLiteRepo(t)
	if _, err := repo.Reserve(context.Background(), "missing", 1); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestSQLiteReserveProductWithoutStockRows(t *testing.T) {
	repo := newSQLiteRepo(t)
	_, err := repo.Reserve(context.Background(), "p3", 1)
	e, ok := apperr.As(err)
	if !ok || e.Kind != apperr.InsufficientStock || e.Available != 0 {
		t.Errorf("expected insufficient stock with 0 available, got %v", err)
	}
}

func TestSQLiteConcurrentReservationsNeverOverdraw(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, fail int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Reserve(ctx, "p1", 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case apperr.Is(err, apperr.InsufficientStock):
				fail++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 15 || fail != 5 {
		t.Errorf("expected 15 successes and 5 rejections, got %d/%d", ok, fail)
	}
	got := stockOf(t, repo, "p1")
	if got["A"] != 0 || got["B"] != 0 {
		t.Errorf("expected all stock consumed, got %v", got)
	}
}

func TestSQLiteCompetingLargeReservations(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := repo.Reserve(ctx, "p1", 10)
			errs <- err
		}()
	}
	var succeeded int
	for i := 0; i < 2; i++ {
		if err := <-errs; err == nil {
			succeeded++
		} else if !apperr.Is(err, apperr.InsufficientStock) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("expected exactly one reservation to succeed, got %d", succeeded)
	}
	got := stockOf(t, repo, "p1")
	if got["A"]+got["B"] != 5 {
		t.Errorf("expected 5 left, got %v", got)
	}
}

func TestSQLiteSeedIsIdempotent(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	if _, err := repo.Reserve(ctx, "p2", 1); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := repo.Seed(ctx, []Product{{ID: "p2", Name: "Product 2", BasePrice: 250, Locations: []StockRecord{{Location: "A", Quantity: 1}}}}); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if got := stockOf(t, repo, "p2"); got["A"] != 0 {
		t.Errorf("reseeding must not restock, got %v", got)
	}

	ps, err := repo.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ps) != 3 || ps[0].ID != "p1" || ps[0].TotalStock != 15 {
		t.Errorf("unexpected product list %+v", ps)
	}
}
