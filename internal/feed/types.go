package feed

import "encoding/json"

// envelope is used for event-type detection before full parsing.
type envelope struct {
	EventType string `json:"event_type"`
}

// rawLevel is a price level with string-encoded price and size, as sent
// on the market channel.
type rawLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// bookEvent is a full book snapshot for one asset.
type bookEvent struct {
	EventType string     `json:"event_type"`
	AssetID   string     `json:"asset_id"`
	Market    string     `json:"market"`
	Bids      []rawLevel `json:"bids"`
	Asks      []rawLevel `json:"asks"`
	Timestamp string     `json:"timestamp"`
	Hash      string     `json:"hash"`
}

// priceChangeEvent carries per-level deltas for one market.
type priceChangeEvent struct {
	EventType string        `json:"event_type"`
	Market    string        `json:"market"`
	Changes   []levelChange `json:"price_changes"`
	Timestamp string        `json:"timestamp"`
}

// levelChange is one level update. Side is "BUY" (bid) or "SELL" (ask);
// a size of "0" deletes the level.
type levelChange struct {
	AssetID string `json:"asset_id"`
	Price   string `json:"price"`
	Size    string `json:"size"`
	Side    string `json:"side"`
}

// subscribeMsg is the market-channel subscription payload.
type subscribeMsg struct {
	Type      string   `json:"type"`
	AssetsIDs []string `json:"assets_ids"`
}

// SubscribeMessage builds the market-channel subscription payload for the
// given asset (token) IDs.
func SubscribeMessage(assetIDs []string) []byte {
	msg, _ := json.Marshal(subscribeMsg{
		Type:      "market",
		AssetsIDs: assetIDs,
	})
	return msg
}
