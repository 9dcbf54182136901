package storage

import (
	"context"
	"time"

	"github.com/aevon-lab/meterstats/internal/core/statistics"
	"github.com/shopspring/decimal"
)

// Sink is the downstream time-bucketed statistics store.
//
// The sink runs its own background compiler that derives hourly rows from the
// raw samples it observes. The engine treats that compiler as an untrusted
// concurrent writer to the same bucket keyspace: it never assumes exclusive
// ownership of the hourly tier.
type Sink interface {
	// WriteRows upserts rows keyed by (statistic id, bucket start).
	// Metadata must pass statistics.Metadata.Validate before this is called.
	WriteRows(ctx context.Context, meta statistics.Metadata, rows []statistics.AggregateRow) error

	// ReadLastRow returns the most recent committed hourly row as a baseline.
	// Anchor rows are skipped: the result is the last imported row.
	// Baseline.Found is false when the key has no such row.
	ReadLastRow(ctx context.Context, key statistics.StatisticKey) (statistics.Baseline, error)

	// ReadLastRowBefore returns the most recent committed non-anchor row whose
	// start is strictly before `before`.
	ReadLastRowBefore(ctx context.Context, key statistics.StatisticKey, before time.Time) (statistics.Baseline, error)

	// ReadRows pages through hourly rows ordered by start ascending, anchors
	// included and flagged. A nil since reads from the beginning of the series.
	ReadRows(ctx context.Context, key statistics.StatisticKey, since *time.Time, offset, limit int) ([]statistics.AggregateRow, error)

	// PurgeRaw deletes raw per-sample history older than keepDays for key.
	// It never touches either statistics tier.
	PurgeRaw(ctx context.Context, key statistics.StatisticKey, keepDays int) (int64, error)

	// DeleteAll removes every short-term and hourly row for key.
	DeleteAll(ctx context.Context, key statistics.StatisticKey) (int64, error)
}

// SampleRecorder is implemented by sinks that keep raw per-sample history.
// The coordinator records the latest reading after each import, the way a
// sensor state update would.
type SampleRecorder interface {
	RecordSample(ctx context.Context, key statistics.StatisticKey, ts time.Time, state decimal.Decimal) error
}

// Source yields absolute meter readings. Results are unordered, may contain
// duplicate timestamps, and may be empty.
type Source interface {
	FetchHistory(ctx context.Context, meterID string, daysBack int) ([]statistics.DataPoint, error)
	FetchRange(ctx context.Context, meterID string, start, end time.Time) ([]statistics.DataPoint, error)
}
