package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-saga-orders/internal/catalog"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	Svc *catalog.Service
	Log *zap.Logger
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Post("/inventory/reduce", h.reduce)
	r.Get("/catalog/products", h.listProducts)
	r.Get("/catalog/products/{id}", h.getProduct)
}

func (h *CatalogHandler) reduce(w http.ResponseWriter, r *http.Request) {
	var req catalog.ReduceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	price, err := h.Svc.Reserve(r.Context(), req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, catalog.ReduceResponse{Message: "stock reserved", UnitPrice: price})
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Svc.ListProducts(r.Context())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Svc.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
