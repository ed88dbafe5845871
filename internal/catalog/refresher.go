package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Refresher periodically re-fetches the catalog so long-running processes
// pick up new weekly contracts without a restart.
type Refresher struct {
	interval time.Duration
	store    *Store
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRefresher creates a refresher around the store.
func NewRefresher(interval time.Duration, store *Store, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		interval: interval,
		store:    store,
		logger:   logger,
	}
}

// Start begins the refresh loop. The first refresh happens one interval
// after Start; the initial load is the store's job.
func (r *Refresher) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.run()

	r.logger.Info("catalog refresher started", "interval", r.interval)
	return nil
}

// Stop gracefully shuts down the refresher.
func (r *Refresher) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("catalog refresher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Refresher) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			if err := r.store.Refresh(r.ctx); err != nil {
				r.logger.Warn("periodic catalog refresh failed", "error", err)
			}
		}
	}
}
