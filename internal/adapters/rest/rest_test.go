package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/timkado/web/storefront-state/internal/adapters/logger"
	"gitlab.com/timkado/web/storefront-state/internal/domain"
	"gitlab.com/timkado/web/storefront-state/pkg/contextkeys"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL+"/api/", time.Second, logger.NewNop(), WithMaxTries(3), WithRetryInterval(time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	if _, err := NewClient("/api", time.Second, logger.NewNop()); err == nil {
		t.Fatalf("expected error for relative base url")
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"ok": "yes"})
	}))

	var out map[string]string
	if err := c.Do(context.Background(), http.MethodGet, "/ping", nil, nil, &out); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 3 || out["ok"] != "yes" {
		t.Fatalf("calls = %d, out = %v", calls.Load(), out)
	}
}

func TestClientGivesUpAfterMaxTries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	err := c.Do(context.Background(), http.MethodGet, "/ping", nil, nil, nil)
	if !IsStatus(err, http.StatusBadGateway) || calls.Load() != 3 {
		t.Fatalf("err = %v, calls = %d", err, calls.Load())
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad", http.StatusBadRequest)
	}))
	err := c.Do(context.Background(), http.MethodGet, "/ping", nil, nil, nil)
	if !IsStatus(err, http.StatusBadRequest) || calls.Load() != 1 {
		t.Fatalf("err = %v, calls = %d", err, calls.Load())
	}
}

func TestClientSendsJSONAndRequestID(t *testing.T) {
	var gotPath, gotReqID, gotType string
	var gotBody map[string]int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotReqID = r.Header.Get("X-Request-ID")
		gotType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	}))
	ctx := context.WithValue(context.Background(), contextkeys.RequestIDKey, "req-1")
	if err := c.Do(ctx, http.MethodPost, "/things", nil, map[string]int{"n": 1}, &struct{}{}); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/api/things" || gotReqID != "req-1" || gotType != "application/json" || gotBody["n"] != 1 {
		t.Fatalf("path %q reqID %q type %q body %v", gotPath, gotReqID, gotType, gotBody)
	}
}

func TestCatalogSourcePagesThroughProducts(t *testing.T) {
	const total = 150
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/products" {
			http.NotFound(w, r)
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		var items []domain.Product
		for i := (page - 1) * limit; i < min(page*limit, total); i++ {
			items = append(items, domain.Product{ID: strconv.Itoa(i), Price: decimal.NewFromInt(int64(i))})
		}
		_ = json.NewEncoder(w).Encode(domain.ProductPage{Items: items, Total: total, Page: page, Limit: limit, TotalPages: (total + limit - 1) / limit})
	}))

	products, err := NewCatalogSource(c).ListProducts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != total || products[149].ID != "149" {
		t.Fatalf("got %d products", len(products))
	}
}

func TestCatalogSourceGetProductNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/products/p-1" {
			_ = json.NewEncoder(w).Encode(domain.Product{ID: "p-1", Name: "Lamp"})
			return
		}
		http.NotFound(w, r)
	}))
	src := NewCatalogSource(c)

	p, err := src.GetProduct(context.Background(), "p-1")
	if err != nil || p.Name != "Lamp" {
		t.Fatalf("GetProduct = %+v, %v", p, err)
	}
	if _, err := src.GetProduct(context.Background(), "nope"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestOrderGateway(t *testing.T) {
	var patched string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/orders":
			var o domain.Order
			_ = json.NewDecoder(r.Body).Decode(&o)
			o.Status = domain.OrderProcessing
			_ = json.NewEncoder(w).Encode(o)
		case r.Method == http.MethodPatch && r.URL.Path == "/api/orders/ORD-1/status":
			var body struct{ Status string }
			_ = json.NewDecoder(r.Body).Decode(&body)
			patched = body.Status
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	gw := NewOrderGateway(c)
	ctx := context.Background()

	created, err := gw.SubmitOrder(ctx, domain.Order{ID: "ORD-1", Status: domain.OrderPending})
	if err != nil || created.Status != domain.OrderProcessing {
		t.Fatalf("SubmitOrder = %+v, %v", created, err)
	}
	if err := gw.UpdateOrderStatus(ctx, "ORD-1", domain.OrderShipped); err != nil || patched != "shipped" {
		t.Fatalf("UpdateOrderStatus err %v, patched %q", err, patched)
	}
	if err := gw.UpdateOrderStatus(ctx, "ORD-2", domain.OrderShipped); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestClientDoesNotRetryPostWithoutIdempotencyKey(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	err := c.Do(context.Background(), http.MethodPost, "/things", nil, map[string]int{"n": 1}, nil)
	if !IsStatus(err, http.StatusBadGateway) || calls.Load() != 1 {
		t.Fatalf("err = %v, calls = %d", err, calls.Load())
	}
}

func TestOrderGatewayRetriesSubmitWithIdempotencyKey(t *testing.T) {
	var calls atomic.Int32
	var mu sync.Mutex
	var keys []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get(IdempotencyKeyHeader))
		mu.Unlock()
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var o domain.Order
		_ = json.NewDecoder(r.Body).Decode(&o)
		_ = json.NewEncoder(w).Encode(o)
	}))

	created, err := NewOrderGateway(c).SubmitOrder(context.Background(), domain.Order{ID: "ORD-7", Status: domain.OrderPending})
	if err != nil || created.ID != "ORD-7" {
		t.Fatalf("SubmitOrder = %+v, %v", created, err)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls.Load() != 2 || len(keys) != 2 || keys[0] != "ORD-7" || keys[1] != "ORD-7" {
		t.Fatalf("calls = %d, keys = %v", calls.Load(), keys)
	}
}
