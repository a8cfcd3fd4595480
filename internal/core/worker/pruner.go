package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/tonkit/internal/infra/storage"
)

// Pruner deletes old cached events based on retention policy. Pruned
// history is refetched from the chain API if the backfill checkpoint is
// ever cleared, so pruning only trades cache size for refetch cost.
type Pruner struct {
	retention time.Duration
	events    storage.EventRepository
	log       *slog.Logger
}

// NewPruner creates a new Pruner worker.
func NewPruner(retention time.Duration, events storage.EventRepository, log *slog.Logger) *Pruner {
	return &Pruner{
		retention: retention,
		events:    events,
		log:       log,
	}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	// Calculate check interval (e.g., 10% of retention period, but max 1 hour)
	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial prune
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	threshold := time.Now().Add(-p.retention).Unix()

	if err := p.events.DeleteEventsBefore(ctx, threshold); err != nil {
		p.log.Error("Failed to prune events", "error", err)
	}
}
