package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
)

func TestClientReserveSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/inventory/reduce" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req ReduceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.ProductID != "vf9" || req.Quantity != 2 {
			t.Errorf("unexpected body %+v", req)
		}
		_ = json.NewEncoder(w).Encode(ReduceResponse{Message: "ok", UnitPrice: 1499})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/api/v1", time.Second)
	price, err := c.Reserve(context.Background(), "vf9", 2)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if price != 1499 {
		t.Errorf("expected 1499, got %d", price)
	}
}

func TestClientReserveFailures(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		body      string
		kind      apperr.Kind
		available int
	}{
		{"insufficient", http.StatusBadRequest, `{"message":"out of stock: only 3 available","code":"insufficient_stock","available":3}`, apperr.InsufficientStock, 3},
		{"not found", http.StatusNotFound, `{"message":"product x not found","code":"not_found"}`, apperr.NotFound, 0},
		{"plain 404", http.StatusNotFound, `not json`, apperr.NotFound, 0},
		{"plain 400", http.StatusBadRequest, `{"message":"bad"}`, apperr.Invalid, 0},
		{"server error", http.StatusInternalServerError, `{"message":"db down"}`, apperr.UpstreamUnavailable, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).Reserve(context.Background(), "x", 1)
			e, ok := apperr.As(err)
			if !ok {
				t.Fatalf("expected *apperr.Error, got %v", err)
			}
			if e.Kind != tc.kind || e.Available != tc.available {
				t.Errorf("got kind=%s available=%d, want %s/%d", e.Kind, e.Available, tc.kind, tc.available)
			}
		})
	}
}

func TestClientReserveTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewClient(srv.URL, 50*time.Millisecond).Reserve(context.Background(), "vf9", 1)
	if !apperr.Is(err, apperr.UpstreamUnavailable) {
		t.Fatalf("expected upstream unavailable, got %v", err)
	}
	if err.Error() != "catalog service timed out" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestClientReserveUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).Reserve(context.Background(), "vf9", 1)
	if !apperr.Is(err, apperr.UpstreamUnavailable) {
		t.Fatalf("expected upstream unavailable, got %v", err)
	}
}
