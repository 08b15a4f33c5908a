package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"sort"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/polydash/polydash/internal/book"
	"github.com/polydash/polydash/internal/metrics"
	"github.com/polydash/polydash/internal/model"
)

// Handler applies decoded market-channel messages to the aggregator and
// forwards fresh snapshots to the history buffer.
type Handler struct {
	agg    *book.Aggregator
	out    *Buffer[model.OrderBookSnapshot]
	logger *slog.Logger
}

// NewHandler creates a Handler. out may be nil when history persistence
// is disabled.
func NewHandler(agg *book.Aggregator, out *Buffer[model.OrderBookSnapshot], logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		agg:    agg,
		out:    out,
		logger: logger,
	}
}

// Listen drains messages from an established connection until ctx is
// cancelled or the connection fails. The connection is closed on return.
func (h *Handler) Listen(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)

	// Unblock ReadMessage when ctx is cancelled. The done channel stops
	// this goroutine when the read loop exits on its own, so a flapping
	// connection does not accumulate watchdogs.
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		h.HandleMessage(raw)
	}
}

// HandleMessage decodes and applies one raw message. The channel delivers
// either a single event object or an array of them.
func (h *Handler) HandleMessage(raw []byte) {
	for i := range raw {
		switch raw[i] {
		case ' ', '\t', '\r', '\n':
			continue
		case '[':
			var events []json.RawMessage
			if err := json.Unmarshal(raw, &events); err != nil {
				metrics.FeedDecodeErrors.Inc()
				h.logger.Warn("invalid feed message", "err", err)
				return
			}
			for _, ev := range events {
				h.handleEvent(ev)
			}
			return
		default:
			h.handleEvent(raw)
			return
		}
	}
}

// handleEvent dispatches a single event object by type.
func (h *Handler) handleEvent(raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		metrics.FeedDecodeErrors.Inc()
		h.logger.Warn("invalid feed event", "err", err)
		return
	}

	switch env.EventType {
	case "book":
		h.handleBook(raw)
	case "price_change":
		h.handlePriceChange(raw)
	default:
		// tick_size_change, last_trade_price: not consumed here.
	}
	metrics.FeedEvents.WithLabelValues(env.EventType).Inc()
}

// handleBook replaces the asset's book with the event's full level set.
func (h *Handler) handleBook(raw []byte) {
	var ev bookEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		metrics.FeedDecodeErrors.Inc()
		h.logger.Warn("failed to parse book event", "err", err)
		return
	}
	if ev.AssetID == "" {
		return
	}

	snap := model.OrderBookSnapshot{
		AssetID: ev.AssetID,
		Bids:    toLevels(ev.Bids, true),
		Asks:    toLevels(ev.Asks, false),
	}
	h.agg.ReplaceBook(snap)
	h.emit(ev.AssetID)
}

// handlePriceChange applies per-level deltas.
func (h *Handler) handlePriceChange(raw []byte) {
	var ev priceChangeEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		metrics.FeedDecodeErrors.Inc()
		h.logger.Warn("failed to parse price_change event", "err", err)
		return
	}

	touched := make(map[string]struct{}, 1)
	for _, ch := range ev.Changes {
		side, ok := parseSide(ch.Side)
		if !ok || ch.AssetID == "" {
			continue
		}

		price, err := strconv.ParseFloat(ch.Price, 64)
		if err != nil {
			continue
		}
		size, err := strconv.ParseFloat(ch.Size, 64)
		if err != nil {
			continue
		}

		h.agg.ApplyLevel(ch.AssetID, side, price, size)
		metrics.LevelsApplied.Inc()
		touched[ch.AssetID] = struct{}{}
	}

	for assetID := range touched {
		h.emit(assetID)
	}
}

// emit pushes the asset's fresh snapshot to the history buffer.
func (h *Handler) emit(assetID string) {
	if h.out == nil {
		return
	}
	if snap, ok := h.agg.Snapshot(assetID); ok {
		h.out.Send(snap)
	}
}

// parseSide maps the channel's BUY/SELL to a book side.
func parseSide(s string) (model.Side, bool) {
	switch s {
	case "BUY", "buy":
		return model.SideBid, true
	case "SELL", "sell":
		return model.SideAsk, true
	}
	return "", false
}

// toLevels converts raw string levels, best price first. Unparsable
// levels are skipped.
func toLevels(raw []rawLevel, descending bool) []model.PriceLevel {
	levels := make([]model.PriceLevel, 0, len(raw))
	for _, r := range raw {
		price, err := strconv.ParseFloat(r.Price, 64)
		if err != nil || price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
			continue
		}
		size, err := strconv.ParseFloat(r.Size, 64)
		if err != nil || size < 0 || math.IsNaN(size) || math.IsInf(size, 0) {
			continue
		}
		levels = append(levels, model.PriceLevel{Price: price, Size: size})
	}

	if descending {
		sort.Slice(levels, func(i, j int) bool { return levels[i].Price > levels[j].Price })
	} else {
		sort.Slice(levels, func(i, j int) bool { return levels[i].Price < levels[j].Price })
	}
	return levels
}
