package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/polydash/polydash/internal/model"
)

// GetBook fetches the current order book for one asset (CLOB token ID).
// Returns ErrNotFound for an unknown token.
func (c *Client) GetBook(ctx context.Context, tokenID string) (model.OrderBookSnapshot, error) {
	query := url.Values{}
	query.Set("token_id", tokenID)

	var resp bookResponse
	if err := c.get(ctx, "/book", query, &resp); err != nil {
		return model.OrderBookSnapshot{}, fmt.Errorf("get book %s: %w", tokenID, err)
	}

	return resp.toSnapshot(tokenID), nil
}
