package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/polydash/polydash/internal/metrics"
)

// Config holds scheduler configuration.
type Config struct {
	Interval time.Duration // Tick period (fixed cadence, no backoff)
	Timeout  time.Duration // Per-tick fetch timeout
}

// State is the consumer-visible result of the most recent ticks.
type State[T any] struct {
	// Snapshot is the result of the last successful fetch. Valid only
	// when HasSnapshot is true; a failed tick never clears it.
	Snapshot    T
	HasSnapshot bool

	// LastSuccessAt is the completion time of the last successful tick.
	LastSuccessAt time.Time

	// LastErr is the error from the most recent tick, or nil if it
	// succeeded.
	LastErr error
}

// Scheduler periodically runs a fetch function and retains the latest
// successfully computed snapshot.
type Scheduler[T any] struct {
	name   string
	cfg    Config
	fetch  func(context.Context) (T, error)
	logger *slog.Logger

	mu    sync.RWMutex
	state State[T]

	// gen increments per started fetch; committedGen is the generation
	// of the last fetch whose result was accepted. A completion older
	// than an already-committed one is discarded, so a slow stale
	// response can never overwrite a newer snapshot.
	gen          uint64
	committedGen uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler. The name labels log lines and metrics.
func New[T any](name string, cfg Config, fetch func(context.Context) (T, error), logger *slog.Logger) *Scheduler[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler[T]{
		name:   name,
		cfg:    cfg,
		fetch:  fetch,
		logger: logger,
	}
}

// Start begins the tick loop. The first tick runs immediately.
func (s *Scheduler[T]) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("refresh scheduler started",
		"series", s.name,
		"interval", s.cfg.Interval,
	)
	return nil
}

// Stop cancels the schedule and waits for any in-flight tick to unwind.
// No tick runs after Stop returns; an abandoned fetch result is discarded.
func (s *Scheduler[T]) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("refresh scheduler stopped", "series", s.name)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current snapshot state.
func (s *Scheduler[T]) State() State[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// run is the tick loop. Ticks execute serially in this goroutine, so two
// fetches for the same series can never race.
func (s *Scheduler[T]) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.tick()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick runs one fetch cycle and commits its result.
func (s *Scheduler[T]) tick() {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	ctx := s.ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	snap, err := s.fetch(ctx)
	s.commit(gen, snap, err, start)
}

// commit records a tick result. A result is discarded when the scheduler
// has been stopped, or when a newer fetch already committed.
func (s *Scheduler[T]) commit(gen uint64, snap T, err error, start time.Time) {
	if s.ctx.Err() != nil {
		s.logger.Debug("discarding tick result after stop", "series", s.name)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen <= s.committedGen {
		return
	}
	s.committedGen = gen

	if err != nil {
		s.state.LastErr = err
		metrics.RefreshTicks.WithLabelValues(s.name, "failure").Inc()
		s.logger.Warn("refresh tick failed",
			"series", s.name,
			"err", err,
			"duration", time.Since(start),
		)
		return
	}

	s.state.Snapshot = snap
	s.state.HasSnapshot = true
	s.state.LastSuccessAt = time.Now()
	s.state.LastErr = nil
	metrics.RefreshTicks.WithLabelValues(s.name, "success").Inc()
	s.logger.Debug("refresh tick complete",
		"series", s.name,
		"duration", time.Since(start),
	)
}
