package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// GetMarkets fetches a page of market records from the Gamma API.
func (c *Client) GetMarkets(ctx context.Context, opts GetMarketsOptions) ([]RawMarket, error) {
	query := url.Values{}

	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Order != "" {
		query.Set("order", opts.Order)
		query.Set("ascending", strconv.FormatBool(opts.Ascending))
	}
	if opts.Active {
		query.Set("active", "true")
	}
	if opts.Closed != nil {
		query.Set("closed", strconv.FormatBool(*opts.Closed))
	}

	var resp []RawMarket
	if err := c.get(ctx, "/markets", query, &resp); err != nil {
		return nil, fmt.Errorf("get markets: %w", err)
	}

	return resp, nil
}

// GetMarketBySlug fetches a single market record by its slug. Returns
// ErrNotFound when no market matches.
func (c *Client) GetMarketBySlug(ctx context.Context, slug string) (*RawMarket, error) {
	query := url.Values{}
	query.Set("slug", slug)

	var resp []RawMarket
	if err := c.get(ctx, "/markets", query, &resp); err != nil {
		return nil, fmt.Errorf("get market %s: %w", slug, err)
	}

	if len(resp) == 0 {
		return nil, fmt.Errorf("market %s: %w", slug, ErrNotFound)
	}

	return &resp[0], nil
}
