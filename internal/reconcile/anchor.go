package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aevon-lab/meterstats/internal/core/statistics"
	"github.com/aevon-lab/meterstats/internal/core/storage"
)

// MaybeWriteAnchor pre-occupies the current hour bucket with a copy of the last
// imported row when the wall clock has moved past it.
//
// The sink's compiler derives a row for the current bucket from whatever it
// has observed since its last compiled bucket. With a stale in-memory baseline
// (after a restart or a purge, or simply before any write this hour) it emits
// a near-zero or negative delta. It skips buckets that already hold a row, so
// an anchor carrying the correct state and sum keeps it out. Real data for the
// hour later replaces the anchor through the normal upsert.
//
// A bucket that already holds a row, real or anchor, is left alone. Anchors
// written by earlier runs are kept in step with the data by the pipeline.
func MaybeWriteAnchor(
	ctx context.Context,
	sink storage.Sink,
	meta statistics.Metadata,
	last statistics.Baseline,
	now time.Time,
) (bool, error) {
	if !last.Found {
		return false, nil
	}

	current := statistics.HourFloor(now)
	if !current.After(last.Timestamp) {
		return false, nil
	}

	occupied, err := sink.ReadRows(ctx, meta.StatisticID, &current, 0, 1)
	if err != nil {
		return false, fmt.Errorf("read current bucket for %s: %w", meta.StatisticID, err)
	}
	if len(occupied) > 0 && occupied[0].Start.Equal(current) {
		return false, nil
	}

	anchor := statistics.AggregateRow{
		Start:  current,
		State:  last.State,
		Sum:    last.Sum,
		Anchor: true,
	}
	if err := sink.WriteRows(ctx, meta, []statistics.AggregateRow{anchor}); err != nil {
		return false, fmt.Errorf("write anchor for %s at %s: %w", meta.StatisticID, current.Format(time.RFC3339), err)
	}

	slog.Info("[AnchorWriter] Anchored current bucket",
		"statistic_id", meta.StatisticID,
		"bucket", current,
		"last_imported", last.Timestamp,
		"sum", last.Sum.String(),
	)
	return true, nil
}
