// Package schedule runs the periodic maintenance tasks of the bridge.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"waha-chatwoot/internal/repo"
)

// Cleanup deletes message mappings past the retention age on a fixed
// interval.
type Cleanup struct {
	store     repo.Store
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
}

// NewCleanup builds the mapping cleanup task.
func NewCleanup(store repo.Store, retention, interval time.Duration, logger *slog.Logger) *Cleanup {
	return &Cleanup{
		store:     store,
		retention: retention,
		interval:  interval,
		logger:    logger.With("component", "cleanup"),
	}
}

// Run blocks until the context is cancelled, sweeping once per interval. The
// first sweep runs immediately so restarts do not postpone retention.
func (c *Cleanup) Run(ctx context.Context) {
	c.sweep(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *Cleanup) sweep(ctx context.Context) {
	deleted, err := c.store.DeleteMappingsOlderThan(ctx, c.retention)
	if err != nil {
		c.logger.Error("failed cleaning old mappings", "error", err)
		return
	}
	if deleted > 0 {
		c.logger.Info("cleaned old mappings", "deleted", deleted, "retention", c.retention)
	}
}
