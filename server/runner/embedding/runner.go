// Package embedding runs the background backfill that embeds items
// persisted without a vector, pairing with the store-without-vector
// degradation path of the memory service.
package embedding

import (
	"context"
	"time"

	"log/slog"

	"github.com/usenexus/nexus/server/service/memory"
)

type Runner struct {
	memory    *memory.Service
	interval  time.Duration
	batchSize int
}

// NewRunner creates an embedding backfill runner.
func NewRunner(memoryService *memory.Service) *Runner {
	return &Runner{
		memory:    memoryService,
		interval:  2 * time.Minute,
		batchSize: 32,
	}
}

// Run starts the background task. It processes once on startup and then
// on every tick until the context is canceled.
func (r *Runner) Run(ctx context.Context) {
	r.RunOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-ctx.Done():
			slog.Info("embedding runner stopped")
			return
		}
	}
}

// RunOnce processes one batch (for startup and manual triggers).
func (r *Runner) RunOnce(ctx context.Context) {
	embedded, err := r.memory.EmbedPending(ctx, r.batchSize)
	if err != nil {
		slog.Error("embedding backfill failed", "error", err)
		return
	}
	if embedded > 0 {
		slog.Info("embedding backfill complete", "embedded", embedded)
	}
}
