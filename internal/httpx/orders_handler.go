package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type OrdersHandler struct {
	Svc *orders.Service
	Log *zap.Logger
}

type createOrderReq struct {
	Items []itemReq `json:"items"`
}

type itemReq struct {
	ProductID string `json:"product_id"`
	Quantity  *int   `json:"quantity"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.orderStatus)
	r.Put("/orders/{id}/pay", h.advance(orders.StatusPaid))
	r.Put("/orders/{id}/confirm", h.advance(orders.StatusScheduled))
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	if caller.UserID == "" {
		writeError(w, h.Log, apperr.New(apperr.Unauthorized, "caller identity is required"))
		return
	}
	var req createOrderReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	items := make([]orders.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		qty := 1
		if it.Quantity != nil {
			qty = *it.Quantity
		}
		items = append(items, orders.ItemInput{ProductID: it.ProductID, Quantity: qty})
	}

	o, err := h.Svc.CreateOrder(r.Context(), caller, items)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) advance(to orders.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := h.Svc.AdvanceStatus(r.Context(), callerFrom(r), chi.URLParam(r, "id"), to)
		if err != nil {
			writeError(w, h.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.Svc.ListOrders(r.Context(), callerFrom(r))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Svc.GetOrder(r.Context(), callerFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) orderStatus(w http.ResponseWriter, r *http.Request) {
	v, err := h.Svc.OrderStatus(r.Context(), callerFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
