package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/distrack-profile/internal/config"
	"github.com/distrack-profile/internal/postgres"
	"github.com/distrack-profile/internal/redis"
)

// RankSyncWorker periodically rebuilds the Redis rank index from the record
// store, recovering from index drift or a cold cache.
type RankSyncWorker struct {
	rank    *redis.RankService
	repo    *postgres.Repository
	config  *config.SyncConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewRankSyncWorker creates a new sync worker
func NewRankSyncWorker(
	rank *redis.RankService,
	repo *postgres.Repository,
	cfg *config.SyncConfig,
	logger *slog.Logger,
) *RankSyncWorker {
	return &RankSyncWorker{
		rank:   rank,
		repo:   repo,
		config: cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the background rebuild loop
func (w *RankSyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("rank sync worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background rebuild loop
func (w *RankSyncWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("rank sync worker stopped")
	return nil
}

// run is the main worker loop
func (w *RankSyncWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if err := w.Rebuild(ctx); err != nil {
				w.logger.Error("rank index rebuild failed", "error", err)
			}
		}
	}
}

// Rebuild replaces the rank index with the totals currently stored in the
// record store. Also used on startup for recovery.
func (w *RankSyncWorker) Rebuild(ctx context.Context) error {
	start := time.Now()

	totals, err := w.repo.CodingTimeByUser(ctx)
	if err != nil {
		return err
	}

	if err := w.rank.Rebuild(ctx, totals); err != nil {
		return err
	}

	w.logger.Info("rank index rebuilt",
		"users", len(totals),
		"duration", time.Since(start),
	)
	return nil
}
