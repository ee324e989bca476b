package httpx

import (
	"net/http"
	"strings"

	"github.com/ariefcatur/go-saga-orders/internal/orders"
)

// Set by the gateway after it has verified the caller's token.
const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
)

func callerFrom(r *http.Request) orders.Caller {
	return orders.Caller{
		UserID: strings.TrimSpace(r.Header.Get(HeaderUserID)),
		Role:   strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole))),
	}
}
