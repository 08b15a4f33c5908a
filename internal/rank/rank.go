// Package rank orders normalized markets for display.
package rank

import (
	"sort"

	"github.com/polydash/polydash/internal/model"
)

// By selects the ranking key.
type By string

const (
	// ByVolume ranks by 24h volume, descending. Every input market
	// appears in the output.
	ByVolume By = "volume"

	// ByProbability ranks by probability, descending. Markets with a
	// null probability are filtered out before sorting and never appear
	// in the output, not even at the bottom.
	ByProbability By = "probability"
)

// ParseBy maps a query-string value to a ranking key.
func ParseBy(s string) (By, bool) {
	switch By(s) {
	case ByVolume:
		return ByVolume, true
	case ByProbability:
		return ByProbability, true
	}
	return "", false
}

// Rank returns a new slice ordered by the given key. The input slice is
// left untouched. Sorting is stable: markets with equal keys retain their
// upstream relative order.
func Rank(markets []model.Market, by By) []model.Market {
	var out []model.Market

	switch by {
	case ByProbability:
		// Filter first, then sort. This is deliberately not a
		// nulls-last sort: unrankable markets are excluded entirely.
		out = make([]model.Market, 0, len(markets))
		for _, m := range markets {
			if m.Probability != nil {
				out = append(out, m)
			}
		}
		sort.SliceStable(out, func(i, j int) bool {
			return *out[i].Probability > *out[j].Probability
		})
	default:
		out = make([]model.Market, len(markets))
		copy(out, markets)
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Volume24hr > out[j].Volume24hr
		})
	}

	return out
}

// Limit truncates a ranked list to at most limit items. A non-positive
// limit, or one exceeding the available count, returns the list unchanged.
func Limit(markets []model.Market, limit int) []model.Market {
	if limit <= 0 || limit >= len(markets) {
		return markets
	}
	return markets[:limit]
}
