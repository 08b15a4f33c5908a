package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/polydash/polydash/internal/api"
	"github.com/polydash/polydash/internal/book"
	"github.com/polydash/polydash/internal/cache"
	"github.com/polydash/polydash/internal/metrics"
	"github.com/polydash/polydash/internal/model"
	"github.com/polydash/polydash/internal/refresh"
)

// MarketSource provides the latest normalized market list.
type MarketSource interface {
	State() refresh.State[[]model.Market]
}

// DetailClient fetches a single market by slug from the upstream API.
type DetailClient interface {
	GetMarketBySlug(ctx context.Context, slug string) (*api.RawMarket, error)
}

// Config holds server settings.
type Config struct {
	Port         int
	DefaultLimit int // Market list size when ?limit= is absent
	MetricsPath  string
}

// Server serves the dashboard API from in-memory state.
type Server struct {
	cfg     Config
	markets MarketSource
	books   *book.Aggregator
	detail  DetailClient
	cache   *cache.Cache
	logger  *slog.Logger

	httpServer *http.Server
}

// New creates a Server. cache may be nil; detail may be nil to disable
// the detail endpoint's upstream lookups.
func New(cfg Config, markets MarketSource, books *book.Aggregator, detail DetailClient, c *cache.Cache, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}
	return &Server{
		cfg:     cfg,
		markets: markets,
		books:   books,
		detail:  detail,
		cache:   c,
		logger:  logger,
	}
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/markets", s.handleMarkets)
		r.Get("/markets/{slug}", s.handleMarketDetail)
		r.Get("/orderbook", s.handleOrderBooks)
		r.Get("/orderbook/{assetID}", s.handleOrderBook)
	})

	if s.cfg.MetricsPath != "" {
		r.Handle(s.cfg.MetricsPath, metrics.Handler())
	}

	return r
}

// Start begins serving in a background goroutine.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		s.logger.Info("http server started", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server failed", "err", err)
		}
	}()

	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	err := s.httpServer.Shutdown(ctx)
	s.logger.Info("http server stopped")
	return err
}
