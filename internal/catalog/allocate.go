package catalog

import (
	"slices"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
)

// Allocate takes qty units from recs, draining the location with the most
// stock first. Ties keep the input order. It returns only the records whose
// quantity changed, with their new quantities; recs itself is not modified.
// When the total is short it returns an InsufficientStock error reporting the
// real total and nothing is allocated.
func Allocate(recs []StockRecord, qty int) ([]StockRecord, error) {
	if qty < 1 {
		return nil, apperr.New(apperr.Invalid, "quantity must be at least 1")
	}
	available := totalOf(recs)
	if available < qty {
		return nil, apperr.Stock(available)
	}

	sorted := slices.Clone(recs)
	slices.SortStableFunc(sorted, func(a, b StockRecord) int { return b.Quantity - a.Quantity })

	remaining := qty
	touched := make([]StockRecord, 0, len(sorted))
	for _, rec := range sorted {
		if remaining == 0 {
			break
		}
		take := min(rec.Quantity, remaining)
		if take <= 0 {
			continue
		}
		rec.Quantity -= take
		remaining -= take
		touched = append(touched, rec)
	}
	return touched, nil
}
