package feed

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/polydash/polydash/internal/book"
	"github.com/polydash/polydash/internal/model"
)

func TestHandleBookEvent(t *testing.T) {
	agg := book.NewAggregator()
	h := NewHandler(agg, nil, nil)

	h.HandleMessage([]byte(`{
		"event_type": "book",
		"asset_id": "tok1",
		"market": "0xabc",
		"bids": [{"price": "0.48", "size": "30"}, {"price": "0.50", "size": "10"}],
		"asks": [{"price": "0.54", "size": "20"}, {"price": "0.52", "size": "5"}]
	}`))

	snap, ok := agg.Snapshot("tok1")
	if !ok {
		t.Fatal("book not created")
	}
	if len(snap.Bids) != 2 || snap.Bids[0].Price != 0.50 {
		t.Errorf("Bids = %+v, want best bid 0.50 first", snap.Bids)
	}
	if len(snap.Asks) != 2 || snap.Asks[0].Price != 0.52 {
		t.Errorf("Asks = %+v, want best ask 0.52 first", snap.Asks)
	}
}

func TestHandleEventArray(t *testing.T) {
	agg := book.NewAggregator()
	h := NewHandler(agg, nil, nil)

	h.HandleMessage([]byte(` [
		{"event_type": "book", "asset_id": "tok1", "bids": [{"price": "0.4", "size": "1"}], "asks": []},
		{"event_type": "book", "asset_id": "tok2", "bids": [], "asks": [{"price": "0.6", "size": "2"}]}
	]`))

	if _, ok := agg.Snapshot("tok1"); !ok {
		t.Error("tok1 not applied")
	}
	snap, ok := agg.Snapshot("tok2")
	if !ok || len(snap.Asks) != 1 {
		t.Errorf("tok2 = %+v, ok=%v", snap, ok)
	}
}

func TestHandlePriceChange(t *testing.T) {
	agg := book.NewAggregator()
	h := NewHandler(agg, nil, nil)

	h.HandleMessage([]byte(`{
		"event_type": "book",
		"asset_id": "tok1",
		"bids": [{"price": "0.50", "size": "10"}],
		"asks": [{"price": "0.52", "size": "5"}]
	}`))

	h.HandleMessage([]byte(`{
		"event_type": "price_change",
		"market": "0xabc",
		"price_changes": [
			{"asset_id": "tok1", "price": "0.51", "size": "7", "side": "BUY"},
			{"asset_id": "tok1", "price": "0.52", "size": "0", "side": "SELL"}
		]
	}`))

	snap, _ := agg.Snapshot("tok1")
	if len(snap.Bids) != 2 || snap.Bids[0].Price != 0.51 {
		t.Errorf("Bids = %+v, want new best bid 0.51", snap.Bids)
	}
	if len(snap.Asks) != 0 {
		t.Errorf("Asks = %+v, want level at 0.52 removed", snap.Asks)
	}
}

func TestHandlePriceChangeEmitsSnapshot(t *testing.T) {
	agg := book.NewAggregator()
	out := NewBuffer[model.OrderBookSnapshot](4)
	h := NewHandler(agg, out, nil)

	h.HandleMessage([]byte(`{
		"event_type": "price_change",
		"price_changes": [{"asset_id": "tok1", "price": "0.5", "size": "3", "side": "BUY"}]
	}`))

	snap, ok := out.TryReceive()
	if !ok {
		t.Fatal("no snapshot emitted")
	}
	if snap.AssetID != "tok1" || len(snap.Bids) != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestHandleMalformedMessages(t *testing.T) {
	agg := book.NewAggregator()
	h := NewHandler(agg, nil, nil)

	// None of these may panic or create state.
	h.HandleMessage([]byte(`not json`))
	h.HandleMessage([]byte(`[{"event_type": "book"`))
	h.HandleMessage([]byte(`{"event_type": "book", "bids": "nope"}`))
	h.HandleMessage([]byte(`{"event_type": "unknown_kind"}`))
	h.HandleMessage([]byte(``))

	if ids := agg.AssetIDs(); len(ids) != 0 {
		t.Errorf("assets created from malformed input: %v", ids)
	}
}

func TestHandlePriceChangeSkipsBadLevels(t *testing.T) {
	agg := book.NewAggregator()
	h := NewHandler(agg, nil, nil)

	h.HandleMessage([]byte(`{
		"event_type": "price_change",
		"price_changes": [
			{"asset_id": "tok1", "price": "abc", "size": "3", "side": "BUY"},
			{"asset_id": "tok1", "price": "0.5", "size": "3", "side": "HOLD"},
			{"asset_id": "", "price": "0.5", "size": "3", "side": "BUY"},
			{"asset_id": "tok1", "price": "0.5", "size": "3", "side": "BUY"}
		]
	}`))

	snap, _ := agg.Snapshot("tok1")
	if len(snap.Bids) != 1 {
		t.Errorf("Bids = %+v, want exactly the one valid level", snap.Bids)
	}
}

func TestListenClosesConnOnReadFailure(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		// Drop the connection so the client's read loop fails.
		conn.Close()
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	h := NewHandler(book.NewAggregator(), nil, nil)
	if err := h.Listen(context.Background(), conn); err == nil {
		t.Fatal("Listen returned nil after peer disconnect")
	}

	// Listen must have closed the connection itself; callers reconnect
	// in a loop and never touch the old one again.
	if err := conn.UnderlyingConn().Close(); !errors.Is(err, net.ErrClosed) {
		t.Errorf("underlying Close() = %v, want already closed", err)
	}
}

func TestListenReturnsOnContextCancel(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		// Hold the connection open; the client leaves via ctx.
		<-r.Context().Done()
		conn.Close()
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	listenDone := make(chan error, 1)
	h := NewHandler(book.NewAggregator(), nil, nil)
	go func() {
		listenDone <- h.Listen(ctx, conn)
	}()

	cancel()

	select {
	case err := <-listenDone:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Listen = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}

func TestSubscribeMessage(t *testing.T) {
	msg := string(SubscribeMessage([]string{"tok1", "tok2"}))

	want := `{"type":"market","assets_ids":["tok1","tok2"]}`
	if msg != want {
		t.Errorf("SubscribeMessage = %s, want %s", msg, want)
	}
}
