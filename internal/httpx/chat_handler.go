package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-saga-orders/internal/chat"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ChatHandler struct {
	Relay *chat.Relay
	Log   *zap.Logger
}

func (h *ChatHandler) Register(r chi.Router) {
	r.Post("/chat/system_notify", h.systemNotify)
	r.Get("/chat/{order_id}", h.history)
}

func (h *ChatHandler) systemNotify(w http.ResponseWriter, r *http.Request) {
	var req chat.NotifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	if err := h.Relay.SystemNotify(r.Context(), req.OrderID, req.Content); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *ChatHandler) history(w http.ResponseWriter, r *http.Request) {
	ms, err := h.Relay.History(r.Context(), chi.URLParam(r, "order_id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}
