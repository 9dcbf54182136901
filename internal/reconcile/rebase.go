package reconcile

import (
	"time"

	"github.com/aevon-lab/meterstats/internal/core/statistics"
)

// tailPoints turns committed rows starting after `after` back into readings.
// A recompute appends them to its fresh points so the recomputed sums carry
// through to the end of the series. Anchors are not readings and are skipped.
func tailPoints(committed []statistics.AggregateRow, after time.Time) []statistics.DataPoint {
	var out []statistics.DataPoint
	for _, row := range committed {
		if row.Anchor || !row.Start.After(after) {
			continue
		}
		out = append(out, statistics.DataPoint{Timestamp: row.Start, Reading: row.State})
	}
	return out
}

// dropUnchanged removes computed rows identical to the committed real row of
// the same bucket, so a rerun over an imported window does not rewrite it.
// A committed anchor never matches: real data for its bucket must clear the flag.
func dropUnchanged(rows, committed []statistics.AggregateRow) []statistics.AggregateRow {
	if len(committed) == 0 {
		return rows
	}
	byStart := make(map[int64]statistics.AggregateRow, len(committed))
	for _, row := range committed {
		byStart[row.Start.Unix()] = row
	}

	out := rows[:0:0]
	for _, row := range rows {
		prev, ok := byStart[row.Start.Unix()]
		if ok && !prev.Anchor && prev.State.Equal(row.State) && prev.Sum.Equal(row.Sum) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// realignAnchors returns the committed anchors whose values no longer match the
// newest real row before them once rows are laid over committed. Each returned
// anchor carries that row's state and sum.
func realignAnchors(rows, committed []statistics.AggregateRow) []statistics.AggregateRow {
	var (
		out     []statistics.AggregateRow
		prev    statistics.AggregateRow
		hasPrev bool
	)
	for _, row := range mergeRows(committed, rows) {
		if !row.Anchor {
			prev, hasPrev = row, true
			continue
		}
		if !hasPrev || (row.State.Equal(prev.State) && row.Sum.Equal(prev.Sum)) {
			continue
		}
		out = append(out, statistics.AggregateRow{
			Start:  row.Start,
			State:  prev.State,
			Sum:    prev.Sum,
			Anchor: true,
		})
	}
	return out
}

// lastReal returns the newest non-anchor row once rows are laid over
// committed, or fallback when there is none.
func lastReal(rows, committed []statistics.AggregateRow, fallback statistics.Baseline) statistics.Baseline {
	merged := mergeRows(committed, rows)
	for i := len(merged) - 1; i >= 0; i-- {
		if !merged[i].Anchor {
			return statistics.BaselineFromRow(merged[i])
		}
	}
	return fallback
}

// mergeRows lays rows over committed, one row per bucket, ordered by start.
func mergeRows(committed, rows []statistics.AggregateRow) []statistics.AggregateRow {
	all := make([]statistics.AggregateRow, 0, len(committed)+len(rows))
	all = append(all, committed...)
	return Coalesce(append(all, rows...))
}
