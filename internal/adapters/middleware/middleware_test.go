package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"gitlab.com/timkado/web/storefront-state/internal/adapters/logger"
	"gitlab.com/timkado/web/storefront-state/internal/adapters/metrics"
	"gitlab.com/timkado/web/storefront-state/pkg/contextkeys"
)

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(contextkeys.RequestIDKey).(string)
	}))

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(XRequestIDHeader, "given")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "given" || rec.Header().Get(XRequestIDHeader) != "given" {
		t.Fatalf("seen %q header %q", seen, rec.Header().Get(XRequestIDHeader))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))
	if seen == "" || seen == "given" || rec.Header().Get(XRequestIDHeader) != seen {
		t.Fatalf("generated id %q header %q", seen, rec.Header().Get(XRequestIDHeader))
	}

	for _, bad := range []string{"has space", strings.Repeat("x", maxRequestIDLength+1)} {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.Header.Set(XRequestIDHeader, bad)
		h.ServeHTTP(httptest.NewRecorder(), req)
		if seen == bad {
			t.Fatalf("unsafe request id %q was kept", bad)
		}
	}
}

func TestAccessLogRecordsStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := AccessLogMiddleware(logger.NewNop())(mux)
	counter := metrics.HTTPRequestsTotal.WithLabelValues("GET /cart", "418")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Fatalf("counter = %v, want %v", got, before+1)
	}
}
