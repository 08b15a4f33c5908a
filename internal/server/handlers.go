package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/polydash/polydash/internal/api"
	"github.com/polydash/polydash/internal/book"
	"github.com/polydash/polydash/internal/model"
	"github.com/polydash/polydash/internal/rank"
	"github.com/polydash/polydash/internal/version"
)

// marketsResponse is the /api/markets payload.
type marketsResponse struct {
	Markets     []model.Market `json:"markets"`
	Count       int            `json:"count"`
	Sort        string         `json:"sort"`
	LastUpdated time.Time      `json:"lastUpdated"`
	// Error surfaces a stale snapshot: set when the last refresh failed
	// but an older list is still being served.
	Error string `json:"error,omitempty"`
}

// bookSummaryEntry is one asset in the /api/orderbook payload.
type bookSummaryEntry struct {
	AssetID    string               `json:"assetId"`
	EventTitle string               `json:"eventTitle,omitempty"`
	Outcome    string               `json:"outcome,omitempty"`
	Stats      model.OrderBookStats `json:"stats"`
}

// booksResponse is the /api/orderbook payload.
type booksResponse struct {
	Count            int                `json:"count"`
	InitializedCount int                `json:"initializedCount"`
	TotalBidLevels   int                `json:"totalBidLevels"`
	TotalAskLevels   int                `json:"totalAskLevels"`
	Books            []bookSummaryEntry `json:"books"`
}

// bookResponse is the /api/orderbook/{assetID} payload.
type bookResponse struct {
	Snapshot model.OrderBookSnapshot `json:"snapshot"`
	Stats    model.OrderBookStats    `json:"stats"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// handleMarkets serves the ranked market list from the latest refresh
// snapshot. Returns 503 until the first successful refresh.
func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	state := s.markets.State()
	if !state.HasSnapshot {
		respondError(w, http.StatusServiceUnavailable, "market data not yet available")
		return
	}

	by := rank.ByVolume
	if v := r.URL.Query().Get("sort"); v != "" {
		parsed, ok := rank.ParseBy(v)
		if !ok {
			respondError(w, http.StatusBadRequest, "sort must be one of: volume, probability")
			return
		}
		by = parsed
	}

	limit := s.cfg.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	markets := rank.Limit(rank.Rank(state.Snapshot, by), limit)

	resp := marketsResponse{
		Markets:     markets,
		Count:       len(markets),
		Sort:        string(by),
		LastUpdated: state.LastSuccessAt,
	}
	if state.LastErr != nil {
		resp.Error = "last refresh failed; serving previous data"
	}

	respondJSON(w, http.StatusOK, resp)
}

// handleMarketDetail serves one market by slug, cache first.
func (s *Server) handleMarketDetail(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		respondError(w, http.StatusBadRequest, "slug is required")
		return
	}

	ctx := r.Context()

	if detail, ok := s.cache.GetDetail(ctx, slug); ok {
		respondJSON(w, http.StatusOK, detail)
		return
	}

	if s.detail == nil {
		respondError(w, http.StatusNotFound, "market not found")
		return
	}

	raw, err := s.detail.GetMarketBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			respondError(w, http.StatusNotFound, "market not found")
			return
		}
		s.logger.Error("market detail lookup failed", "slug", slug, "err", err)
		respondError(w, http.StatusBadGateway, "upstream request failed")
		return
	}

	detail := raw.ToMarketDetail()
	if err := s.cache.SetDetail(ctx, slug, detail); err != nil {
		s.logger.Warn("failed to cache market detail", "slug", slug, "err", err)
	}

	respondJSON(w, http.StatusOK, detail)
}

// handleOrderBooks serves aggregate stats for every tracked asset.
func (s *Server) handleOrderBooks(w http.ResponseWriter, r *http.Request) {
	summary := s.books.Summary()

	resp := booksResponse{
		Count:            summary.Count,
		InitializedCount: summary.InitializedCount,
		TotalBidLevels:   summary.TotalBidLevels,
		TotalAskLevels:   summary.TotalAskLevels,
		Books:            make([]bookSummaryEntry, 0, len(summary.Books)),
	}
	for _, snap := range summary.Books {
		resp.Books = append(resp.Books, bookSummaryEntry{
			AssetID:    snap.AssetID,
			EventTitle: snap.EventTitle,
			Outcome:    snap.Outcome,
			Stats:      book.ComputeStats(snap),
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

// handleOrderBook serves one asset's book and derived stats.
func (s *Server) handleOrderBook(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")

	snap, ok := s.books.Snapshot(assetID)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown asset")
		return
	}

	respondJSON(w, http.StatusOK, bookResponse{
		Snapshot: snap,
		Stats:    book.ComputeStats(snap),
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, errors.New("not positive")
	}
	return n, nil
}
