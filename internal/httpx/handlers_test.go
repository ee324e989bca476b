package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
	"github.com/ariefcatur/go-saga-orders/internal/catalog"
	"github.com/ariefcatur/go-saga-orders/internal/chat"
	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"github.com/ariefcatur/go-saga-orders/internal/sqlite"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := sqlite.Migrate(ctx, db, catalog.SQLiteSchema); err != nil {
		t.Fatal(err)
	}
	repo := &catalog.SQLiteRepo{DB: db}
	if err := repo.Seed(ctx, []catalog.Product{
		{ID: "vf9", Name: "VF 9", BasePrice: 1000, Locations: []catalog.StockRecord{{Location: "A", Quantity: 5}, {Location: "B", Quantity: 10}}},
		{ID: "vf5", Name: "VF 5", BasePrice: 300, Locations: []catalog.StockRecord{{Location: "A", Quantity: 1}}},
	}); err != nil {
		t.Fatal(err)
	}

	r := NewRouter(zap.NewNop())
	r.Route("/api/v1", (&CatalogHandler{Svc: catalog.NewService(repo, nil, nil), Log: zap.NewNop()}).Register)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

type memChat struct {
	mu   sync.Mutex
	msgs []chat.Message
}

func (m *memChat) Append(ctx context.Context, msg chat.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *memChat) History(ctx context.Context, orderID string) ([]chat.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []chat.Message{}
	for _, msg := range m.msgs {
		if msg.OrderID == orderID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memChat) FirstSeen(ctx context.Context, consumer, eventID string) (bool, error) {
	return true, nil
}

func (m *memChat) Forget(ctx context.Context, consumer, eventID string) error { return nil }

func newChatServer(t *testing.T, store chat.Store) *httptest.Server {
	t.Helper()
	r := NewRouter(zap.NewNop())
	r.Route("/api/v1", (&ChatHandler{Relay: chat.NewRelay(store, nil), Log: zap.NewNop()}).Register)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newOrderServer(t *testing.T, catalogURL string, notifier orders.Notifier) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "orders.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := sqlite.Migrate(ctx, db, orders.SQLiteSchema); err != nil {
		t.Fatal(err)
	}
	svc := orders.NewService(&orders.SQLiteRepo{DB: db}, catalog.NewClient(catalogURL, 2*time.Second), nil)
	svc.Notifier = notifier

	r := NewRouter(zap.NewNop())
	r.Route("/api/v1", (&OrdersHandler{Svc: svc, Log: zap.NewNop()}).Register)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

type call struct {
	method, url, user, role, body string
}

func do(t *testing.T, c call, out any) int {
	t.Helper()
	req, err := http.NewRequest(c.method, c.url, strings.NewReader(c.body))
	if err != nil {
		t.Fatal(err)
	}
	if c.user != "" {
		req.Header.Set(HeaderUserID, c.user)
	}
	if c.role != "" {
		req.Header.Set(HeaderUserRole, c.role)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", c.method, c.url, err)
		}
	}
	return resp.StatusCode
}

func TestInventoryReduceEndpoint(t *testing.T) {
	cat := newCatalogServer(t)
	url := cat.URL + "/api/v1/inventory/reduce"

	var ok catalog.ReduceResponse
	if code := do(t, call{method: http.MethodPost, url: url, body: `{"product_id":"vf9","quantity":12}`}, &ok); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if ok.UnitPrice != 1000 {
		t.Errorf("unexpected unit price %d", ok.UnitPrice)
	}

	var fail errorBody
	code := do(t, call{method: http.MethodPost, url: url, body: `{"product_id":"vf9","quantity":4}`}, &fail)
	if code != http.StatusBadRequest || fail.Code != "insufficient_stock" || fail.Available == nil || *fail.Available != 3 {
		t.Errorf("expected 400 insufficient_stock with 3 available, got %d %+v", code, fail)
	}

	fail = errorBody{}
	if code := do(t, call{method: http.MethodPost, url: url, body: `{"product_id":"nope","quantity":1}`}, &fail); code != http.StatusNotFound || fail.Code != "not_found" {
		t.Errorf("expected 404 not_found, got %d %+v", code, fail)
	}

	fail = errorBody{}
	if code := do(t, call{method: http.MethodPost, url: url, body: `{"product_id":`}, &fail); code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed json, got %d", code)
	}

	var p catalog.Product
	if code := do(t, call{method: http.MethodGet, url: cat.URL + "/api/v1/catalog/products/vf9"}, &p); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if p.TotalStock != 3 {
		t.Errorf("expected 3 left after reserving 12, got %d", p.TotalStock)
	}
}

func TestOrderFlow(t *testing.T) {
	cat := newCatalogServer(t)
	store := &memChat{}
	chatSrv := newChatServer(t, store)
	api := newOrderServer(t, cat.URL+"/api/v1", chat.NewClient(chatSrv.URL+"/api/v1", time.Second))
	base := api.URL + "/api/v1/orders"

	var eb errorBody
	if code := do(t, call{method: http.MethodPost, url: base, body: `{"items":[]}`}, &eb); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", code)
	}

	var o orders.Order
	code := do(t, call{method: http.MethodPost, url: base, user: "7", role: "customer",
		body: `{"items":[{"product_id":"vf9","quantity":2},{"product_id":"vf5"}]}`}, &o)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if o.TotalAmount != 2300 || len(o.Items) != 2 || o.Items[1].Quantity != 1 || o.Status != orders.StatusPending {
		t.Errorf("unexpected order %+v", o)
	}

	var res orders.StatusResult
	if code := do(t, call{method: http.MethodPut, url: base + "/" + o.ID + "/pay", user: "7"}, &res); code != http.StatusOK || res.Status != orders.StatusPaid {
		t.Fatalf("pay: %d %+v", code, res)
	}

	eb = errorBody{}
	if code := do(t, call{method: http.MethodPut, url: base + "/" + o.ID + "/confirm", user: "7", role: "customer"}, &eb); code != http.StatusForbidden {
		t.Errorf("expected 403 for customer confirm, got %d", code)
	}

	res = orders.StatusResult{}
	if code := do(t, call{method: http.MethodPut, url: base + "/" + o.ID + "/confirm", user: "1", role: "admin"}, &res); code != http.StatusOK {
		t.Fatalf("confirm: %d", code)
	}
	if res.Status != orders.StatusScheduled || res.Warning != "" {
		t.Errorf("unexpected confirm result %+v", res)
	}
	var hist []chat.Message
	if code := do(t, call{method: http.MethodGet, url: chatSrv.URL + "/api/v1/chat/" + o.ID}, &hist); code != http.StatusOK || len(hist) != 1 {
		t.Fatalf("expected one chat message, got %d %v", code, hist)
	}
	if hist[0].Role != chat.RoleSystem || !strings.Contains(hist[0].Content, o.ID) {
		t.Errorf("unexpected chat message %+v", hist[0])
	}

	var mine []orders.Order
	if code := do(t, call{method: http.MethodGet, url: base, user: "8"}, &mine); code != http.StatusOK || len(mine) != 0 {
		t.Errorf("other customers must see nothing, got %d %v", code, mine)
	}
	var all []orders.Order
	if code := do(t, call{method: http.MethodGet, url: base, user: "1", role: "admin"}, &all); code != http.StatusOK || len(all) != 1 {
		t.Errorf("admin should see the order, got %d %v", code, all)
	}

	var sv orders.StatusView
	if code := do(t, call{method: http.MethodGet, url: base + "/" + o.ID + "/status", user: "7"}, &sv); code != http.StatusOK || sv.Status != orders.StatusScheduled {
		t.Errorf("status: %d %+v", code, sv)
	}
}

func TestOrderCreateReservationFailures(t *testing.T) {
	cat := newCatalogServer(t)
	api := newOrderServer(t, cat.URL+"/api/v1", nil)
	base := api.URL + "/api/v1/orders"

	var eb errorBody
	code := do(t, call{method: http.MethodPost, url: base, user: "7",
		body: `{"items":[{"product_id":"vf9","quantity":2},{"product_id":"vf5","quantity":5}]}`}, &eb)
	if code != http.StatusBadRequest || eb.Code != "insufficient_stock" || eb.Available == nil || *eb.Available != 1 {
		t.Fatalf("expected 400 insufficient_stock, got %d %+v", code, eb)
	}

	var p catalog.Product
	do(t, call{method: http.MethodGet, url: cat.URL + "/api/v1/catalog/products/vf9"}, &p)
	if p.TotalStock != 13 {
		t.Errorf("earlier reservation stays applied, expected 13 got %d", p.TotalStock)
	}

	var list []orders.Order
	do(t, call{method: http.MethodGet, url: base, user: "7"}, &list)
	if len(list) != 0 {
		t.Errorf("failed order must not be persisted")
	}

	eb = errorBody{}
	if code := do(t, call{method: http.MethodPost, url: base, user: "7", body: `{"items":[{"product_id":"ghost","quantity":1}]}`}, &eb); code != http.StatusNotFound {
		t.Errorf("unknown product: expected 404, got %d", code)
	}

	down := newOrderServer(t, "http://127.0.0.1:1/api/v1", nil)
	eb = errorBody{}
	if code := do(t, call{method: http.MethodPost, url: down.URL + "/api/v1/orders", user: "7", body: `{"items":[{"product_id":"vf9","quantity":1}]}`}, &eb); code != http.StatusServiceUnavailable {
		t.Errorf("catalog down: expected 503, got %d %+v", code, eb)
	}
}

func TestConfirmWarnsWhenChatIsDown(t *testing.T) {
	cat := newCatalogServer(t)
	api := newOrderServer(t, cat.URL+"/api/v1", chat.NewClient("http://127.0.0.1:1/api/v1", 200*time.Millisecond))
	base := api.URL + "/api/v1/orders"

	var o orders.Order
	do(t, call{method: http.MethodPost, url: base, user: "7", body: `{"items":[]}`}, &o)

	var res orders.StatusResult
	if code := do(t, call{method: http.MethodPut, url: base + "/" + o.ID + "/confirm", user: "1", role: "admin"}, &res); code != http.StatusOK {
		t.Fatalf("confirm must succeed, got %d", code)
	}
	if res.Status != orders.StatusScheduled || res.Warning == "" {
		t.Errorf("expected scheduled with warning, got %+v", res)
	}
}

func TestChatSystemNotifyValidation(t *testing.T) {
	srv := newChatServer(t, &memChat{})

	var body map[string]string
	code := do(t, call{method: http.MethodPost, url: srv.URL + "/api/v1/chat/system_notify", body: `{"order_id":"o-1"}`}, &body)
	if code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
	body = nil
	code = do(t, call{method: http.MethodPost, url: srv.URL + "/api/v1/chat/system_notify", body: `{"order_id":"o-1","content":"hi"}`}, &body)
	if code != http.StatusOK || body["status"] != "success" {
		t.Errorf("expected success, got %d %v", code, body)
	}
}

func TestWriteErrorHidesInternalCause(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, zap.NewNop(), apperr.Wrap(apperr.Internal, errors.New("pq: password authentication failed"), "could not load orders"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password") || strings.Contains(rec.Body.String(), "could not load") {
		t.Errorf("internal details leaked: %s", rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	r := NewRouter(zap.NewNop())
	r.Route("/api/v1", func(chi.Router) {})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", bytes.NewReader(nil)))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("unexpected healthz %d %q", rec.Code, rec.Body.String())
	}
}
