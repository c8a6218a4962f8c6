// Package retention implements the retention sweeper (RS): a periodic pass
// that deletes DeliveryLog rows older than a configured horizon, grounded
// in internal/reputation/decay_scheduler.go's ticker-loop/run()/sweep()
// split from the teacher repo.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/ocx/webhooks/internal/metrics"
	"github.com/ocx/webhooks/internal/store"
)

// Config parameterizes the sweeper.
type Config struct {
	Horizon       time.Duration
	SweepInterval time.Duration
}

// DefaultConfig returns the horizon/interval named in SPEC_FULL.md §4.5.
func DefaultConfig() Config {
	return Config{
		Horizon:       72 * time.Hour,
		SweepInterval: time.Hour,
	}
}

// Sweeper owns the retention ticker loop.
type Sweeper struct {
	store   store.Store
	metrics *metrics.Metrics
	cfg     Config
	logger  *slog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds a Sweeper against the given store.
func New(s store.Store, m *metrics.Metrics, cfg Config) *Sweeper {
	if cfg.Horizon <= 0 {
		cfg.Horizon = DefaultConfig().Horizon
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultConfig().SweepInterval
	}
	return &Sweeper{
		store:   s,
		metrics: m,
		cfg:     cfg,
		logger:  slog.Default().With("component", "retention_sweeper"),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Run starts the ticker loop. It blocks until Stop is called, so callers
// typically invoke it in its own goroutine.
func (s *Sweeper) Run() {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// Stop signals the loop to exit and waits for the current tick to finish.
func (s *Sweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

// sweep runs one purge pass and logs the outcome; it never propagates the
// error beyond this call — the next tick simply tries again.
func (s *Sweeper) sweep() {
	deleted, err := s.PurgeOldLogs(context.Background())
	if err != nil {
		s.logger.Error("sweep failed", "error", err)
		if s.metrics != nil {
			s.metrics.RetentionSweepFailures.Inc()
		}
		return
	}
	s.logger.Info("sweep complete", "rows_deleted", deleted)
}

// PurgeOldLogs deletes every DeliveryLog row older than the configured
// horizon and returns the count deleted.
func (s *Sweeper) PurgeOldLogs(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.cfg.Horizon)
	deleted, err := s.store.PurgeDeliveryLogsOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if s.metrics != nil {
		s.metrics.RetentionRowsDeletedTotal.Add(float64(deleted))
	}
	return deleted, nil
}
