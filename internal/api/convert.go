package api

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/polydash/polydash/internal/model"
)

// defaultOutcomes is used when a record carries prices but no outcome names.
var defaultOutcomes = []string{"Yes", "No"}

// flexFloat is a float64 that unmarshals from a JSON number or a numeric
// string. Absent, malformed, or non-finite input yields 0.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	*f = 0

	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		var unquoted string
		if err := json.Unmarshal(data, &unquoted); err != nil {
			return nil
		}
		s = strings.TrimSpace(unquoted)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}

	*f = flexFloat(v)
	return nil
}

// Float returns the value clamped to be non-negative.
func (f flexFloat) Float() float64 {
	if f < 0 {
		return 0
	}
	return float64(f)
}

// ParseOutcomes pairs a string-encoded price array with a string-encoded
// name array into outcome quotes, preserving input order.
//
// Invalid JSON in either field, or a length mismatch between the two lists,
// yields an empty result rather than a partial or misaligned pairing. An
// individual price that fails to parse yields 0 for that entry only.
func ParseOutcomes(outcomePrices, outcomes string) []model.OutcomeQuote {
	if outcomePrices == "" {
		return nil
	}

	var prices []string
	if err := json.Unmarshal([]byte(outcomePrices), &prices); err != nil {
		return nil
	}

	names := defaultOutcomes
	if outcomes != "" {
		if err := json.Unmarshal([]byte(outcomes), &names); err != nil {
			return nil
		}
	}

	if len(prices) != len(names) {
		return nil
	}

	quotes := make([]model.OutcomeQuote, 0, len(prices))
	for i, p := range prices {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		quotes = append(quotes, model.OutcomeQuote{
			Name:        names[i],
			Probability: v,
		})
	}

	return quotes
}

// marketURL builds the public market page URL from a slug.
func marketURL(slug string) string {
	if slug == "" {
		return ""
	}
	return "https://polymarket.com/event/" + slug
}

// ToMarket converts a RawMarket to a normalized model.Market. It never
// fails: a record missing every field normalizes to an all-zero Market.
func (m *RawMarket) ToMarket() model.Market {
	outcomes := ParseOutcomes(m.OutcomePrices, m.Outcomes)

	var probability *float64
	if len(outcomes) > 0 {
		p := outcomes[0].Probability
		probability = &p
	}

	return model.Market{
		ID:          m.ID,
		Question:    m.Question,
		Slug:        m.Slug,
		Probability: probability,
		Outcomes:    outcomes,
		Volume24hr:  m.Volume24hr.Float(),
		TotalVolume: m.VolumeNum.Float(),
		Liquidity:   m.LiquidityNum.Float(),
		EndDate:     m.EndDate,
		Image:       m.Image,
		URL:         marketURL(m.Slug),
	}
}

// ToMarketDetail converts a RawMarket to a model.MarketDetail. Numeric
// handling is identical to ToMarket; no probability is computed.
func (m *RawMarket) ToMarketDetail() model.MarketDetail {
	return model.MarketDetail{
		ID:          m.ID,
		Question:    m.Question,
		Slug:        m.Slug,
		Description: m.Description,
		Outcomes:    ParseOutcomes(m.OutcomePrices, m.Outcomes),
		Volume24hr:  m.Volume24hr.Float(),
		TotalVolume: m.VolumeNum.Float(),
		Liquidity:   m.LiquidityNum.Float(),
		StartDate:   m.StartDate,
		EndDate:     m.EndDate,
		Image:       m.Image,
		URL:         marketURL(m.Slug),
	}
}

// toSnapshot converts a bookResponse to a model.OrderBookSnapshot. Levels
// with unparsable price or size are skipped; bids are sorted descending and
// asks ascending so the best price leads both sides.
func (b *bookResponse) toSnapshot(assetID string) model.OrderBookSnapshot {
	if b.AssetID != "" {
		assetID = b.AssetID
	}
	return model.OrderBookSnapshot{
		AssetID: assetID,
		Bids:    parseLevels(b.Bids, true),
		Asks:    parseLevels(b.Asks, false),
	}
}

// parseLevels converts raw string levels to sorted price levels.
func parseLevels(raw []rawLevel, descending bool) []model.PriceLevel {
	levels := make([]model.PriceLevel, 0, len(raw))
	for _, r := range raw {
		price, err := strconv.ParseFloat(r.Price, 64)
		if err != nil || price <= 0 || math.IsInf(price, 0) {
			continue
		}
		size, err := strconv.ParseFloat(r.Size, 64)
		if err != nil || size < 0 || math.IsInf(size, 0) || math.IsNaN(size) {
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
