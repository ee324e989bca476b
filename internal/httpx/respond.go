package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
	"go.uber.org/zap"
)

type errorBody struct {
	Message   string `json:"message"`
	Code      string `json:"code"`
	Available *int   `json:"available,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as {message, code}. Internal causes are logged, never sent.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	body := errorBody{Message: err.Error(), Code: kind.String()}
	switch kind {
	case apperr.Internal:
		log.Error("request failed", zap.Error(err))
		body.Message = "internal error"
	case apperr.InsufficientStock:
		if e, ok := apperr.As(err); ok {
			n := e.Available
			body.Available = &n
		}
	}
	writeJSON(w, kind.HTTPStatus(), body)
}

// decodeJSON reads a JSON body. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Wrap(apperr.Invalid, err, "invalid json")
	}
	return nil
}
