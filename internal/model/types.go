package model

// Side identifies one half of an order book.
type Side string

const (
	SideBid Side = "bid"
	SideAsk Side = "ask"
)

// OutcomeQuote pairs an outcome name with its current price, read as a
// probability in [0, 1].
type OutcomeQuote struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
}

// Market is the normalized view of one prediction market, rebuilt from the
// raw upstream record on every fetch cycle and never mutated in place.
type Market struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Slug     string `json:"slug"`

	// Probability is the first outcome's probability, or null when the
	// market has no parseable outcomes. Markets with a null probability
	// are excluded from probability-based rankings.
	Probability *float64       `json:"probability"`
	Outcomes    []OutcomeQuote `json:"outcomes"`

	Volume24hr  float64 `json:"volume24hr"`
	TotalVolume float64 `json:"totalVolume"`
	Liquidity   float64 `json:"liquidity"`

	EndDate string `json:"endDate"`
	Image   string `json:"image"`
	URL     string `json:"url"`
}

// MarketDetail extends Market with description and start date. It carries no
// probability field; callers derive it from Outcomes[0] when present.
type MarketDetail struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Slug     string `json:"slug"`

	Description string `json:"description"`

	Outcomes []OutcomeQuote `json:"outcomes"`

	Volume24hr  float64 `json:"volume24hr"`
	TotalVolume float64 `json:"totalVolume"`
	Liquidity   float64 `json:"liquidity"`

	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Image     string `json:"image"`
	URL       string `json:"url"`
}

// PriceLevel is one (price, size) pair on a single side of an order book.
type PriceLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// OrderBookSnapshot is an immutable copy of one asset's book. Bids are
// sorted descending by price and asks ascending, best price first on both
// sides. Within a side prices are unique.
type OrderBookSnapshot struct {
	AssetID    string       `json:"assetId"`
	Bids       []PriceLevel `json:"bids"`
	Asks       []PriceLevel `json:"asks"`
	EventTitle string       `json:"eventTitle,omitempty"`
	Outcome    string       `json:"outcome,omitempty"`
}

// OrderBookStats is the derived view of a single snapshot. Stats are always
// computed fresh from the snapshot they describe and are never stored apart
// from it.
type OrderBookStats struct {
	BidLevels int     `json:"bidLevels"`
	AskLevels int     `json:"askLevels"`
	BidTotal  float64 `json:"bidTotal"`
	AskTotal  float64 `json:"askTotal"`

	// Spread and MidPrice are null when the side(s) needed to compute
	// them are empty. SpreadPercent is additionally null when the
	// mid-price is zero.
	Spread        *float64 `json:"spread"`
	SpreadPercent *float64 `json:"spreadPercent"`
	MidPrice      *float64 `json:"midPrice"`

	// Imbalance is (bidTotal-askTotal)/(bidTotal+askTotal) in [-1, 1],
	// or 0 for an empty book. Positive means bid-heavy.
	Imbalance float64 `json:"imbalance"`
}
