package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/aevon-lab/meterstats/internal/core/statistics"
	"github.com/aevon-lab/meterstats/internal/core/storage"
)

// ResolveBaseline reads the most recent committed row for key from the sink.
//
// It holds no state and must be called at the start of every import run: the
// sink is the only source of truth shared by the scheduled and manual import
// paths, and a cached baseline would let them compute divergent sums.
func ResolveBaseline(ctx context.Context, sink storage.Sink, key statistics.StatisticKey) (statistics.Baseline, error) {
	baseline, err := sink.ReadLastRow(ctx, key)
	if err != nil {
		return statistics.Baseline{}, fmt.Errorf("resolve baseline for %s: %w", key, err)
	}
	if !baseline.Found {
		return statistics.ZeroBaseline(), nil
	}
	return baseline, nil
}

// ResolveBaselineBefore reads the last committed row strictly before windowStart.
// Force-overwrite and replay runs continue from it instead of from the latest row.
func ResolveBaselineBefore(
	ctx context.Context,
	sink storage.Sink,
	key statistics.StatisticKey,
	windowStart time.Time,
) (statistics.Baseline, error) {
	baseline, err := sink.ReadLastRowBefore(ctx, key, windowStart)
	if err != nil {
		return statistics.Baseline{}, fmt.Errorf("resolve baseline for %s before %s: %w", key, windowStart.Format(time.RFC3339), err)
	}
	if !baseline.Found {
		return statistics.ZeroBaseline(), nil
	}
	return baseline, nil
}
