package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/polydash/polydash/internal/api"
	"github.com/polydash/polydash/internal/book"
	"github.com/polydash/polydash/internal/metrics"
	"github.com/polydash/polydash/internal/model"
)

// AssetSource provides the asset (token) IDs to re-sync.
type AssetSource interface {
	AssetIDs() []string
}

// SnapshotHandler receives fetched snapshots after they are applied to
// the aggregator.
type SnapshotHandler interface {
	HandleSnapshot(snapshot model.OrderBookSnapshot) error
}

// SnapshotHandlerFunc is a function adapter for SnapshotHandler.
type SnapshotHandlerFunc func(model.OrderBookSnapshot) error

func (f SnapshotHandlerFunc) HandleSnapshot(s model.OrderBookSnapshot) error {
	return f(s)
}

// Config holds poller configuration.
type Config struct {
	Interval    time.Duration // Poll interval (default: 5m)
	Concurrency int           // Max concurrent requests (default: 10)
	Timeout     time.Duration // Per-request timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    5 * time.Minute,
		Concurrency: 10,
		Timeout:     10 * time.Second,
	}
}

// Poller periodically fetches full order books via REST and replaces the
// aggregator's state for each tracked asset.
type Poller struct {
	cfg     Config
	client  *api.Client
	assets  AssetSource
	agg     *book.Aggregator
	handler SnapshotHandler
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller. handler may be nil.
func New(cfg Config, client *api.Client, assets AssetSource, agg *book.Aggregator, handler SnapshotHandler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:     cfg,
		client:  client,
		assets:  assets,
		agg:     agg,
		handler: handler,
		logger:  logger,
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("book poller started",
		"interval", p.cfg.Interval,
		"concurrency", p.cfg.Concurrency,
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("book poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.pollAll()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.pollAll()
		}
	}
}

// pollAll fetches order books for all tracked assets concurrently.
func (p *Poller) pollAll() {
	start := time.Now()

	assetIDs := p.assets.AssetIDs()
	if len(assetIDs) == 0 {
		p.logger.Debug("no assets to poll")
		return
	}

	g, ctx := errgroup.WithContext(p.ctx)
	g.SetLimit(p.cfg.Concurrency)

	var fetched, errors atomic.Int64

	for _, assetID := range assetIDs {
		assetID := assetID
		g.Go(func() error {
			if err := p.pollAsset(ctx, assetID); err != nil {
				p.logger.Warn("failed to poll asset",
					"asset_id", assetID,
					"err", err,
				)
				errors.Add(1)
				metrics.PollErrors.Inc()
				return nil // keep polling the rest
			}
			fetched.Add(1)
			return nil
		})
	}

	g.Wait()

	metrics.PollCycleDuration.Observe(time.Since(start).Seconds())
	p.logger.Info("poll cycle complete",
		"assets", len(assetIDs),
		"fetched", fetched.Load(),
		"errors", errors.Load(),
		"duration", time.Since(start),
	)
}

// pollAsset fetches one asset's full book and replaces the aggregator's
// state for it.
func (p *Poller) pollAsset(ctx context.Context, assetID string) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	snapshot, err := p.client.GetBook(ctx, assetID)
	if err != nil {
		return err
	}

	p.agg.ReplaceBook(snapshot)

	if p.handler != nil {
		if err := p.handler.HandleSnapshot(snapshot); err != nil {
			return err
		}
	}

	return nil
}
