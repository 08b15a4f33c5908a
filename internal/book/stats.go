package book

import "github.com/polydash/polydash/internal/model"

// ComputeStats derives order book statistics from a snapshot. It is a pure
// function: given the same snapshot it always returns the same stats, and
// it never reads live book state.
//
// Degenerate inputs are well-defined: an empty book yields null spread and
// mid-price and zero imbalance, and spread percent is null whenever the
// mid-price is zero or undefined.
func ComputeStats(snap model.OrderBookSnapshot) model.OrderBookStats {
	stats := model.OrderBookStats{
		BidLevels: len(snap.Bids),
		AskLevels: len(snap.Asks),
	}

	for _, l := range snap.Bids {
		stats.BidTotal += l.Size
	}
	for _, l := range snap.Asks {
		stats.AskTotal += l.Size
	}

	var bestBid, bestAsk *float64
	if len(snap.Bids) > 0 {
		bestBid = &snap.Bids[0].Price
	}
	if len(snap.Asks) > 0 {
		bestAsk = &snap.Asks[0].Price
	}

	switch {
	case bestBid != nil && bestAsk != nil:
		spread := *bestAsk - *bestBid
		mid := (*bestBid + *bestAsk) / 2
		stats.Spread = &spread
		stats.MidPrice = &mid
	case bestBid != nil:
		mid := *bestBid
		stats.MidPrice = &mid
	case bestAsk != nil:
		mid := *bestAsk
		stats.MidPrice = &mid
	}

	if stats.Spread != nil && stats.MidPrice != nil && *stats.MidPrice != 0 {
		pct := *stats.Spread / *stats.MidPrice
		stats.SpreadPercent = &pct
	}

	if total := stats.BidTotal + stats.AskTotal; total != 0 {
		stats.Imbalance = (stats.BidTotal - stats.AskTotal) / total
	}

	return stats
}
