package api

// RawMarket is a market record as returned by the Gamma API. Price and
// outcome lists arrive as JSON arrays embedded inside string fields, and
// numeric fields may be numbers or numeric strings depending on endpoint.
type RawMarket struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Slug     string `json:"slug"`

	// OutcomePrices is a string-encoded JSON array of numeric strings,
	// e.g. "[\"0.65\", \"0.35\"]".
	OutcomePrices string `json:"outcomePrices"`

	// Outcomes is a string-encoded JSON array of outcome names,
	// e.g. "[\"Yes\", \"No\"]". Defaults to Yes/No when absent.
	Outcomes string `json:"outcomes"`

	Volume24hr   flexFloat `json:"volume24hr"`
	VolumeNum    flexFloat `json:"volumeNum"`
	LiquidityNum flexFloat `json:"liquidityNum"`

	Description string `json:"description"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Image       string `json:"image"`
}

// GetMarketsOptions configures a GetMarkets request.
type GetMarketsOptions struct {
	Limit     int
	Order     string // e.g. "volume24hr"
	Ascending bool
	Active    bool
	Closed    *bool
}

// rawLevel is a single order book level as served by the CLOB API, with
// price and size as decimal strings.
type rawLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// bookResponse from GET /book.
type bookResponse struct {
	Market    string     `json:"market"`
	AssetID   string     `json:"asset_id"`
	Timestamp string     `json:"timestamp"`
	Hash      string     `json:"hash"`
	Bids      []rawLevel `json:"bids"`
	Asks      []rawLevel `json:"asks"`
}
