package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/polydash/polydash/internal/api"
	"github.com/polydash/polydash/internal/book"
	"github.com/polydash/polydash/internal/cache"
	"github.com/polydash/polydash/internal/config"
	"github.com/polydash/polydash/internal/database"
	"github.com/polydash/polydash/internal/feed"
	"github.com/polydash/polydash/internal/model"
	"github.com/polydash/polydash/internal/poller"
	"github.com/polydash/polydash/internal/refresh"
	"github.com/polydash/polydash/internal/server"
	"github.com/polydash/polydash/internal/version"
	"github.com/polydash/polydash/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/polydashd.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting polydashd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"gamma_url", cfg.API.GammaURL,
		"clob_url", cfg.API.CLOBURL,
		"assets", len(cfg.Assets),
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Upstream API clients
	gamma := api.NewClient(
		cfg.API.GammaURL,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
	)
	clob := api.NewClient(
		cfg.API.CLOBURL,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
	)

	// Order book aggregator, seeded with configured assets
	agg := book.NewAggregator()
	for _, a := range cfg.Assets {
		agg.Track(a.TokenID, a.EventTitle, a.Outcome)
	}

	// Optional history persistence
	var snapshots *feed.Buffer[model.OrderBookSnapshot]
	var historyWriter *writer.HistoryWriter

	if cfg.HistoryEnabled() {
		logger.Info("connecting to history database",
			"host", cfg.Database.Postgres.Host,
			"database", cfg.Database.Postgres.Name,
		)

		pool, err := database.Connect(ctx, cfg.Database.Postgres)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		snapshots = feed.NewBuffer[model.OrderBookSnapshot](cfg.Writers.BufferSize)
		historyWriter = writer.NewHistoryWriter(writer.WriterConfig{
			BatchSize:     cfg.Writers.BatchSize,
			FlushInterval: cfg.Writers.FlushInterval,
			BufferSize:    cfg.Writers.BufferSize,
		}, snapshots, pool, logger)

		if err := historyWriter.Start(ctx); err != nil {
			logger.Error("failed to start history writer", "error", err)
			os.Exit(1)
		}
	}

	// Live feed, when assets are configured. A failed dial is not fatal:
	// the poller keeps the books in sync over REST.
	if len(cfg.Assets) > 0 {
		handler := feed.NewHandler(agg, snapshots, logger)
		go runFeed(ctx, cfg, handler, agg, logger)
	}

	// Book re-sync poller. Re-synced books flow into history like live
	// feed updates do.
	var onResync poller.SnapshotHandler
	if snapshots != nil {
		onResync = poller.SnapshotHandlerFunc(func(s model.OrderBookSnapshot) error {
			snapshots.Send(s)
			return nil
		})
	}

	bookPoller := poller.New(poller.Config{
		Interval:    cfg.Poller.Interval,
		Concurrency: cfg.Poller.Concurrency,
		Timeout:     cfg.Poller.Timeout,
	}, clob, agg, agg, onResync, logger)

	if err := bookPoller.Start(ctx); err != nil {
		logger.Error("failed to start poller", "error", err)
		os.Exit(1)
	}

	// Market list refresh
	marketsScheduler := refresh.New("markets", refresh.Config{
		Interval: cfg.Markets.RefreshInterval,
		Timeout:  cfg.Markets.RefreshTimeout,
	}, func(ctx context.Context) ([]model.Market, error) {
		raws, err := gamma.GetMarkets(ctx, api.GetMarketsOptions{
			Limit:  cfg.Markets.Limit,
			Order:  "volume24hr",
			Active: true,
		})
		if err != nil {
			return nil, err
		}
		markets := make([]model.Market, 0, len(raws))
		for i := range raws {
			markets = append(markets, raws[i].ToMarket())
		}
		return markets, nil
	}, logger)

	if err := marketsScheduler.Start(ctx); err != nil {
		logger.Error("failed to start market refresh", "error", err)
		os.Exit(1)
	}

	// Optional Redis cache for detail lookups
	var detailCache *cache.Cache
	if cfg.CacheEnabled() {
		detailCache, err = cache.New(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer detailCache.Close()
		logger.Info("redis cache connected")
	}

	// HTTP API
	srv := server.New(server.Config{
		Port:         cfg.Server.Port,
		DefaultLimit: cfg.Markets.Limit,
		MetricsPath:  cfg.Metrics.Path,
	}, marketsScheduler, agg, gamma, detailCache, logger)

	if err := srv.Start(); err != nil {
		logger.Error("failed to start http server", "error", err)
		os.Exit(1)
	}

	logger.Info("polydashd running",
		"instance_id", cfg.Instance.ID,
		"port", cfg.Server.Port,
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	srv.Stop(shutdownCtx)
	marketsScheduler.Stop(shutdownCtx)
	bookPoller.Stop(shutdownCtx)
	if historyWriter != nil {
		snapshots.Close()
		historyWriter.Stop(shutdownCtx)
	}

	logger.Info("polydashd stopped")
}

// runFeed dials the market channel, subscribes, and drains messages
// until ctx is cancelled. Reconnects with a flat delay on failure.
func runFeed(ctx context.Context, cfg *config.Config, handler *feed.Handler, agg *book.Aggregator, logger *slog.Logger) {
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.API.WSURL, nil)
		if err != nil {
			logger.Warn("feed dial failed", "url", cfg.API.WSURL, "err", err)
		} else {
			sub := feed.SubscribeMessage(agg.AssetIDs())
			if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
				logger.Warn("feed subscribe failed", "err", err)
				conn.Close()
			} else {
				logger.Info("feed connected", "assets", len(agg.AssetIDs()))
				if err := handler.Listen(ctx, conn); err != nil && ctx.Err() == nil {
					logger.Warn("feed disconnected", "err", err)
				}
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}
