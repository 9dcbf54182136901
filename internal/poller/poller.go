package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/aevon-lab/meterstats/internal/reconcile"
)

// Importer runs one import pass over every registered meter.
type Importer interface {
	ImportAll(ctx context.Context, days int) ([]reconcile.ImportResult, error)
}

// Poller imports recent history of every meter on a periodic interval.
// It is stateless: each pass resolves its baselines from the sink.
type Poller struct {
	importer    Importer
	interval    time.Duration
	days        int
	initialDays int
}

// New creates a poller. initialDays > 0 runs one wider pass before the first tick.
func New(importer Importer, interval time.Duration, days, initialDays int) *Poller {
	return &Poller{
		importer:    importer,
		interval:    interval,
		days:        days,
		initialDays: initialDays,
	}
}

// Start begins periodic imports. Runs until ctx is cancelled.
func (p *Poller) Start(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	slog.Info("[Poller] Starting import poller",
		"interval", p.interval,
		"days", p.days,
		"initial_days", p.initialDays,
	)

	if p.initialDays > 0 {
		p.pass(ctx, p.initialDays)
	}

	for {
		select {
		case <-ticker.C:
			p.pass(ctx, p.days)
		case <-ctx.Done():
			// An interrupted import leaves no partial rows, so there is no final drain.
			slog.Info("[Poller] Stopping (context cancelled)")
			return nil
		}
	}
}

// pass imports every meter once. Failures are logged; the next tick retries.
func (p *Poller) pass(ctx context.Context, days int) {
	started := time.Now()
	results, err := p.importer.ImportAll(ctx, days)

	var imported, anchors int
	for _, r := range results {
		imported += r.Imported
		if r.AnchorWritten {
			anchors++
		}
	}

	if err != nil {
		slog.Error("[Poller] Import pass finished with failures",
			"error", err,
			"days", days,
			"meters_ok", len(results),
			"duration", time.Since(started),
		)
		return
	}
	slog.Info("[Poller] Import pass complete",
		"days", days,
		"meters", len(results),
		"rows", imported,
		"anchors", anchors,
		"duration", time.Since(started),
	)
}
