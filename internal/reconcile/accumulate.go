package reconcile

import (
	"sort"

	"github.com/aevon-lab/meterstats/internal/core/statistics"
	"github.com/shopspring/decimal"
)

// Accumulate converts ordered absolute readings into hourly rows continuing
// from baseline. Each point yields one row; use Coalesce to keep one row per bucket.
//
// A series without a committed row continues from the zero baseline, so its
// first row's sum equals the first reading.
func Accumulate(points []statistics.DataPoint, baseline statistics.Baseline) []statistics.AggregateRow {
	return accumulate(points, baseline, baseline.Sum, decimal.NewFromInt(1))
}

// accumulate folds deltas scaled by factor into a running sum starting at startSum.
func accumulate(
	points []statistics.DataPoint,
	baseline statistics.Baseline,
	startSum decimal.Decimal,
	factor decimal.Decimal,
) []statistics.AggregateRow {
	if len(points) == 0 {
		return nil
	}

	previous := baseline.State
	sum := startSum

	rows := make([]statistics.AggregateRow, 0, len(points))
	for _, p := range points {
		delta := p.Reading.Sub(previous)
		sum = sum.Add(delta.Mul(factor))
		rows = append(rows, statistics.AggregateRow{
			Start: statistics.HourFloor(p.Timestamp),
			State: p.Reading,
			Sum:   sum,
		})
		previous = p.Reading
	}
	return rows
}

// Coalesce keeps the last row for every bucket start and returns rows ordered by start.
// The sink's handling of several rows for one bucket in a single write is not
// relied upon.
func Coalesce(rows []statistics.AggregateRow) []statistics.AggregateRow {
	if len(rows) == 0 {
		return nil
	}

	byStart := make(map[int64]int, len(rows))
	out := make([]statistics.AggregateRow, 0, len(rows))
	for _, row := range rows {
		k := row.Start.Unix()
		if idx, ok := byStart[k]; ok {
			out[idx] = row
			continue
		}
		byStart[k] = len(out)
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}
