package catalog

type Product struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	BasePrice   int64         `json:"base_price"`
	ImageURL    string        `json:"image_url"`
	TotalStock  int           `json:"total_stock"`
	Locations   []StockRecord `json:"inventory"`
}

// StockRecord is the stock of one product at one dealer location.
type StockRecord struct {
	ID        int64  `json:"-"`
	ProductID string `json:"-"`
	Location  string `json:"location"`
	Quantity  int    `json:"stock_quantity"`
}

// ReduceRequest / ReduceResponse are the wire shapes of POST /inventory/reduce.
type ReduceRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type ReduceResponse struct {
	Message   string `json:"message"`
	UnitPrice int64  `json:"unit_price"`
}

func totalOf(recs []StockRecord) int {
	n := 0
	for _, r := range recs {
		n += r.Quantity
	}
	return n
}

func withStock(p Product, recs []StockRecord) Product {
	if recs == nil {
		recs = []StockRecord{}
	}
	p.Locations = recs
	p.TotalStock = totalOf(recs)
	return p
}
