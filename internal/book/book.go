package book

import (
	"math"
	"sort"
	"sync"

	"github.com/polydash/polydash/internal/model"
)

// assetBook is the live state for one asset. Levels are kept sorted with
// the best price first: bids descending, asks ascending. Prices within a
// side are unique; an update to an existing price replaces its size.
type assetBook struct {
	mu          sync.RWMutex
	bids        []model.PriceLevel
	asks        []model.PriceLevel
	eventTitle  string
	outcome     string
	initialized bool
}

// Aggregator holds the order books for all tracked assets.
type Aggregator struct {
	mu    sync.RWMutex
	books map[string]*assetBook
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		books: make(map[string]*assetBook),
	}
}

// Track registers an asset with optional display labels. Tracking an
// already-known asset updates its labels and keeps its levels.
func (a *Aggregator) Track(assetID, eventTitle, outcome string) {
	b := a.getOrCreate(assetID)
	b.mu.Lock()
	b.eventTitle = eventTitle
	b.outcome = outcome
	b.mu.Unlock()
}

// AssetIDs returns all tracked asset IDs in sorted order.
func (a *Aggregator) AssetIDs() []string {
	a.mu.RLock()
	ids := make([]string, 0, len(a.books))
	for id := range a.books {
		ids = append(ids, id)
	}
	a.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// ApplyLevel applies one level update to an asset's book. A size of zero
// removes the level at that price; otherwise the level is inserted or its
// size replaced, keeping the side sorted. Applying the same update twice
// leaves the book unchanged.
func (a *Aggregator) ApplyLevel(assetID string, side model.Side, price, size float64) {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return
	}
	if size < 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return
	}

	b := a.getOrCreate(assetID)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.initialized = true
	switch side {
	case model.SideBid:
		b.bids = applyToSide(b.bids, price, size, true)
	case model.SideAsk:
		b.asks = applyToSide(b.asks, price, size, false)
	}
}

// ReplaceBook replaces an asset's entire book with the given snapshot.
// Used for full book events from the feed and for REST re-syncs.
func (a *Aggregator) ReplaceBook(snap model.OrderBookSnapshot) {
	if snap.AssetID == "" {
		return
	}

	b := a.getOrCreate(snap.AssetID)

	b.mu.Lock()
	b.bids = copyLevels(snap.Bids)
	b.asks = copyLevels(snap.Asks)
	b.initialized = true
	b.mu.Unlock()
}

// Snapshot returns a deep copy of an asset's current book. The second
// return value is false for an unknown asset.
func (a *Aggregator) Snapshot(assetID string) (model.OrderBookSnapshot, bool) {
	a.mu.RLock()
	b, ok := a.books[assetID]
	a.mu.RUnlock()
	if !ok {
		return model.OrderBookSnapshot{}, false
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	return model.OrderBookSnapshot{
		AssetID:    assetID,
		Bids:       copyLevels(b.bids),
		Asks:       copyLevels(b.asks),
		EventTitle: b.eventTitle,
		Outcome:    b.outcome,
	}, true
}

// Snapshots returns snapshots of every tracked asset, ordered by asset ID.
func (a *Aggregator) Snapshots() []model.OrderBookSnapshot {
	ids := a.AssetIDs()

	snaps := make([]model.OrderBookSnapshot, 0, len(ids))
	for _, id := range ids {
		if snap, ok := a.Snapshot(id); ok {
			snaps = append(snaps, snap)
		}
	}
	return snaps
}

// Summary aggregates counts across all tracked assets.
type Summary struct {
	Count            int
	InitializedCount int
	TotalBidLevels   int
	TotalAskLevels   int
	Books            []model.OrderBookSnapshot
}

// Summary returns snapshots plus aggregate level counts for all assets.
func (a *Aggregator) Summary() Summary {
	ids := a.AssetIDs()

	s := Summary{
		Count: len(ids),
		Books: make([]model.OrderBookSnapshot, 0, len(ids)),
	}

	for _, id := range ids {
		a.mu.RLock()
		b := a.books[id]
		a.mu.RUnlock()

		b.mu.RLock()
		initialized := b.initialized
		b.mu.RUnlock()

		snap, ok := a.Snapshot(id)
		if !ok {
			continue
		}

		if initialized {
			s.InitializedCount++
		}
		s.TotalBidLevels += len(snap.Bids)
		s.TotalAskLevels += len(snap.Asks)
		s.Books = append(s.Books, snap)
	}

	return s
}

// getOrCreate returns the book for assetID, creating it if needed.
func (a *Aggregator) getOrCreate(assetID string) *assetBook {
	a.mu.RLock()
	b, ok := a.books[assetID]
	a.mu.RUnlock()
	if ok {
		return b
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if b, ok = a.books[assetID]; ok {
		return b
	}
	b = &assetBook{}
	a.books[assetID] = b
	return b
}

// applyToSide inserts, replaces, or removes (size 0) the level at price,
// keeping the side sorted best-first.
func applyToSide(levels []model.PriceLevel, price, size float64, descending bool) []model.PriceLevel {
	idx := sort.Search(len(levels), func(i int) bool {
		if descending {
			return levels[i].Price <= price
		}
		return levels[i].Price >= price
	})

	exists := idx < len(levels) && levels[idx].Price == price

	switch {
	case size == 0 && exists:
		return append(levels[:idx], levels[idx+1:]...)
	case size == 0:
		return levels
	case exists:
		levels[idx].Size = size
		return levels
	default:
		levels = append(levels, model.PriceLevel{})
		copy(levels[idx+1:], levels[idx:])
		levels[idx] = model.PriceLevel{Price: price, Size: size}
		return levels
	}
}

func copyLevels(levels []model.PriceLevel) []model.PriceLevel {
	out := make([]model.PriceLevel, len(levels))
	copy(out, levels)
	return out
}
