package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/orderbook/{assetID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ts := httptest.NewServer(r)
	defer ts.Close()

	pattern := HTTPRequestsTotal.WithLabelValues("GET", "/api/orderbook/{assetID}", "200")
	before := testutil.ToFloat64(pattern)

	for _, id := range []string{"tok1", "tok2", "tok3"} {
		resp, err := http.Get(ts.URL + "/api/orderbook/" + id)
		if err != nil {
			t.Fatalf("GET %s: %v", id, err)
		}
		resp.Body.Close()
	}

	if got := testutil.ToFloat64(pattern) - before; got != 3 {
		t.Errorf("pattern-labeled count = %v, want 3", got)
	}

	// Raw paths must not appear as label values.
	raw := HTTPRequestsTotal.WithLabelValues("GET", "/api/orderbook/tok1", "200")
	if got := testutil.ToFloat64(raw); got != 0 {
		t.Errorf("raw-path label count = %v, want 0", got)
	}
}
