package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/polydash/polydash/internal/api"
	"github.com/polydash/polydash/internal/book"
	"github.com/polydash/polydash/internal/model"
)

// mockAssetSource returns a fixed list of asset IDs.
type mockAssetSource struct {
	ids []string
}

func (m *mockAssetSource) AssetIDs() []string {
	return m.ids
}

func bookJSON(w http.ResponseWriter) {
	resp := map[string]any{
		"bids": []map[string]string{
			{"price": "0.48", "size": "100"},
			{"price": "0.50", "size": "50"},
		},
		"asks": []map[string]string{
			{"price": "0.52", "size": "75"},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func TestPoller_PollAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bookJSON(w)
	}))
	defer server.Close()

	client := api.NewClient(server.URL, api.WithTimeout(5*time.Second))
	agg := book.NewAggregator()
	assets := &mockAssetSource{ids: []string{"tok1", "tok2", "tok3"}}

	var snapshotCount atomic.Int32
	handler := SnapshotHandlerFunc(func(s model.OrderBookSnapshot) error {
		snapshotCount.Add(1)
		return nil
	})

	cfg := Config{
		Interval:    time.Hour, // Long interval, we'll trigger manually.
		Concurrency: 10,
		Timeout:     5 * time.Second,
	}

	p := New(cfg, client, assets, agg, handler, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p.ctx = ctx

	p.pollAll()

	if got := snapshotCount.Load(); got != 3 {
		t.Errorf("snapshotCount = %d, want 3", got)
	}

	snap, ok := agg.Snapshot("tok2")
	if !ok {
		t.Fatal("tok2 missing from aggregator")
	}
	if len(snap.Bids) != 2 || snap.Bids[0].Price != 0.50 {
		t.Errorf("Bids = %+v, want best bid 0.50 first", snap.Bids)
	}
}

func TestPoller_StartStop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bookJSON(w)
	}))
	defer server.Close()

	client := api.NewClient(server.URL)
	agg := book.NewAggregator()
	assets := &mockAssetSource{ids: []string{"tok1"}}

	var called atomic.Bool
	handler := SnapshotHandlerFunc(func(s model.OrderBookSnapshot) error {
		called.Store(true)
		return nil
	})

	cfg := Config{
		Interval:    100 * time.Millisecond,
		Concurrency: 10,
		Timeout:     5 * time.Second,
	}

	p := New(cfg, client, assets, agg, handler, nil)

	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Wait for at least one poll.
	time.Sleep(150 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if !called.Load() {
		t.Error("handler was never called")
	}
}

func TestPoller_Concurrency(t *testing.T) {
	var inFlight atomic.Int32
	var maxInFlight atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current := inFlight.Add(1)
		defer inFlight.Add(-1)

		// Track max concurrent requests.
		for {
			old := maxInFlight.Load()
			if current <= old || maxInFlight.CompareAndSwap(old, current) {
				break
			}
		}

		// Simulate some work.
		time.Sleep(50 * time.Millisecond)

		bookJSON(w)
	}))
	defer server.Close()

	client := api.NewClient(server.URL)
	agg := book.NewAggregator()

	var ids []string
	for i := 0; i < 20; i++ {
		ids = append(ids, fmt.Sprintf("tok%d", i))
	}
	assets := &mockAssetSource{ids: ids}

	cfg := Config{
		Interval:    time.Hour,
		Concurrency: 5, // Limit to 5 concurrent.
		Timeout:     5 * time.Second,
	}

	p := New(cfg, client, assets, agg, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	p.ctx = ctx

	p.pollAll()

	if got := maxInFlight.Load(); got > 5 {
		t.Errorf("maxInFlight = %d, want <= 5", got)
	}
}

func TestPoller_ContinuesAfterError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		bookJSON(w)
	}))
	defer server.Close()

	client := api.NewClient(server.URL)
	agg := book.NewAggregator()
	assets := &mockAssetSource{ids: []string{"tok1", "tok2", "tok3"}}

	var handled atomic.Int32
	handler := SnapshotHandlerFunc(func(s model.OrderBookSnapshot) error {
		handled.Add(1)
		return nil
	})

	cfg := Config{
		Interval:    time.Hour,
		Concurrency: 1, // Serialize so exactly one request fails.
		Timeout:     5 * time.Second,
	}

	p := New(cfg, client, assets, agg, handler, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p.ctx = ctx

	p.pollAll()

	if got := handled.Load(); got != 2 {
		t.Errorf("handled = %d, want 2 (one asset fails, rest continue)", got)
	}
}
