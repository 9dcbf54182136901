package statistics

import (
	"time"

	"github.com/shopspring/decimal"
)

// DataPoint is one absolute (odometer) reading reported by the source.
// Points are immutable once received; batches are not ordered.
type DataPoint struct {
	Timestamp time.Time
	Reading   decimal.Decimal
	Unit      string // billing unit as reported by the source, e.g. "GAL", "CCF"
}

// Baseline is the last (state, sum) pair the sink holds for a statistic.
// It is resolved from the sink before every import and never cached.
type Baseline struct {
	Timestamp time.Time
	State     decimal.Decimal
	Sum       decimal.Decimal
	Found     bool // false when the sink has no row for the key
}

// ZeroBaseline is the baseline for a statistic with no committed rows.
func ZeroBaseline() Baseline {
	return Baseline{State: decimal.Zero, Sum: decimal.Zero}
}

// AggregateRow is one hourly long-term statistics row.
type AggregateRow struct {
	Start  time.Time       // hour-aligned bucket start
	State  decimal.Decimal // last reading observed in the bucket
	Sum    decimal.Decimal // cumulative consumption, non-decreasing over Start
	Anchor bool            // synthetic row carrying the last real values into the current hour; persisted by sinks
}

// BaselineFromRow converts a committed row into the baseline the next run continues from.
func BaselineFromRow(row AggregateRow) Baseline {
	return Baseline{
		Timestamp: row.Start,
		State:     row.State,
		Sum:       row.Sum,
		Found:     true,
	}
}
