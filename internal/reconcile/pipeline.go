package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aevon-lab/meterstats/internal/core/statistics"
	"github.com/aevon-lab/meterstats/internal/core/storage"
	"github.com/aevon-lab/meterstats/internal/meters"
	"github.com/google/uuid"
)

// pipelineRun is one import or replay of a single meter.
type pipelineRun struct {
	meter  meters.Meter
	points []statistics.DataPoint

	// recompute bypasses the overlap filter and continues from the last row
	// before windowStart instead of the latest row.
	recompute   bool
	windowStart time.Time // zero means the bucket of the first point
	purgeRaw    bool
}

// series is the fully computed write set for one statistic key.
type series struct {
	meta    statistics.Metadata
	rows    []statistics.AggregateRow // computed rows that differ from the committed ones
	anchors []statistics.AggregateRow // committed anchors rewritten to follow the new rows
	last    statistics.Baseline       // newest real row after the write, input of the anchor
}

// plan derives the write set from computed rows and the committed rows they
// continue.
func (s *series) plan(computed, committed []statistics.AggregateRow) {
	s.rows = dropUnchanged(computed, committed)
	s.anchors = realignAnchors(computed, committed)
	s.last = lastReal(computed, committed, s.last)
}

func (s series) writes() []statistics.AggregateRow {
	if len(s.anchors) == 0 {
		return s.rows
	}
	return mergeRows(s.anchors, s.rows)
}

// run computes every row for both series before the first write, so a
// conversion or metadata error leaves the sink untouched.
//
// The baseline is the last imported row; anchors never move it. Committed rows
// from the baseline on are read back so that rows after the fresh points are
// re-accumulated and stale anchors are rewritten in the same write.
func (c *Coordinator) run(ctx context.Context, r pipelineRun) (*ImportResult, error) {
	key := r.meter.Key()
	result := &ImportResult{
		RunID:       uuid.NewString(),
		MeterID:     r.meter.ID,
		StatisticID: key,
		Fetched:     len(r.points),
	}

	converted, err := statistics.ConvertPoints(r.meter.UnitSystem, r.points)
	if err != nil {
		return nil, fmt.Errorf("convert readings for %s: %w", key, err)
	}
	ordered := SortAndDedupe(converted)

	windowStart := r.windowStart
	if r.recompute && windowStart.IsZero() && len(ordered) > 0 {
		windowStart = statistics.HourFloor(ordered[0].Timestamp)
	}

	baseline, latest, err := c.resolveBaselines(ctx, key, r.recompute, windowStart)
	if err != nil {
		return nil, err
	}

	fresh := ordered
	if !r.recompute {
		fresh = FilterNew(ordered, baseline.Timestamp)
	}

	consumption := series{
		meta: statistics.ConsumptionMetadata(r.meter.ID, r.meter.UnitSystem),
		last: latest,
	}
	if err := consumption.meta.Validate(); err != nil {
		return nil, err
	}

	var normalized []statistics.DataPoint
	tail := 0
	if len(fresh) > 0 {
		committed, err := c.readCommitted(ctx, key, baseline)
		if err != nil {
			return nil, err
		}
		extra := tailPoints(committed, statistics.HourFloor(fresh[len(fresh)-1].Timestamp))
		tail = len(extra)
		points := make([]statistics.DataPoint, 0, len(fresh)+tail)
		points = append(append(points, fresh...), extra...)
		normalized = Normalize(points, baseline)
		consumption.plan(Coalesce(Accumulate(normalized, baseline)), committed)
	}

	cost, err := c.planCost(ctx, r, normalized, baseline, windowStart)
	if err != nil {
		return nil, err
	}

	slog.Debug("[Coordinator] Computed rows",
		"run_id", result.RunID,
		"statistic_id", key,
		"fetched", len(r.points),
		"new_points", len(fresh),
		"tail_points", tail,
		"rows", len(consumption.rows),
		"anchors_realigned", len(consumption.anchors),
		"baseline_sum", baseline.Sum.String(),
	)

	anchored, err := c.commit(ctx, consumption)
	if err != nil {
		return nil, err
	}
	result.Imported = len(consumption.rows)
	result.AnchorWritten = anchored
	result.AnchorsRealigned = len(consumption.anchors)
	if n := len(consumption.rows); n > 0 {
		lastBucket := consumption.rows[n-1].Start
		result.LastBucket = &lastBucket
	}

	if cost != nil {
		if _, err := c.commit(ctx, *cost); err != nil {
			return nil, err
		}
		result.CostRows = len(cost.rows)
		result.AnchorsRealigned += len(cost.anchors)
	}

	if r.purgeRaw {
		purged, err := c.sink.PurgeRaw(ctx, key, 0)
		if err != nil {
			slog.Warn("[Coordinator] Raw history purge failed", "statistic_id", key, "error", err)
		}
		result.PurgedRaw = purged
	}

	if len(fresh) > 0 {
		c.recordLatest(ctx, key, normalized[len(fresh)-1])
	}

	if len(consumption.rows) > 0 {
		result.Verified = c.verify(ctx, key, consumption.last)
	}

	slog.Info("[Coordinator] Import complete",
		"run_id", result.RunID,
		"statistic_id", key,
		"fetched", result.Fetched,
		"imported", result.Imported,
		"anchor_written", result.AnchorWritten,
		"anchors_realigned", result.AnchorsRealigned,
		"cost_rows", result.CostRows,
		"recompute", r.recompute,
	)
	return result, nil
}

// readCommitted pages through the committed rows of key from the baseline
// bucket on, anchors included. Without a baseline it reads the whole series.
func (c *Coordinator) readCommitted(
	ctx context.Context,
	key statistics.StatisticKey,
	baseline statistics.Baseline,
) ([]statistics.AggregateRow, error) {
	var since *time.Time
	if baseline.Found {
		ts := baseline.Timestamp
		since = &ts
	}

	var out []statistics.AggregateRow
	for offset := 0; ; offset += validationBatchSize {
		rows, err := c.sink.ReadRows(ctx, key, since, offset, validationBatchSize)
		if err != nil {
			return nil, fmt.Errorf("read committed rows for %s: %w", key, err)
		}
		out = append(out, rows...)
		if len(rows) < validationBatchSize {
			return out, nil
		}
	}
}

// resolveBaselines returns the baseline the run continues from and the latest
// committed row. They differ only when recomputing a window.
func (c *Coordinator) resolveBaselines(
	ctx context.Context,
	key statistics.StatisticKey,
	recompute bool,
	windowStart time.Time,
) (statistics.Baseline, statistics.Baseline, error) {
	latest, err := ResolveBaseline(ctx, c.sink, key)
	if err != nil {
		return statistics.Baseline{}, statistics.Baseline{}, err
	}
	if !recompute || windowStart.IsZero() {
		return latest, latest, nil
	}
	before, err := ResolveBaselineBefore(ctx, c.sink, key, windowStart)
	if err != nil {
		return statistics.Baseline{}, statistics.Baseline{}, err
	}
	return before, latest, nil
}

// planCost computes the companion cost series, or returns nil when no price is configured.
func (c *Coordinator) planCost(
	ctx context.Context,
	r pipelineRun,
	normalized []statistics.DataPoint,
	baseline statistics.Baseline,
	windowStart time.Time,
) (*series, error) {
	if c.prices == nil {
		return nil, nil
	}
	price, ok, err := c.prices.CurrentPrice(ctx, r.meter)
	if err != nil {
		return nil, fmt.Errorf("read price for %s: %w", r.meter.ID, err)
	}
	if !ok {
		return nil, nil
	}

	costKey := statistics.CostKey(r.meter.Key())
	costBaseline, costLatest, err := c.resolveBaselines(ctx, costKey, r.recompute, windowStart)
	if err != nil {
		return nil, err
	}

	cost := &series{
		meta: statistics.CostMetadata(r.meter.ID, price.Currency),
		last: costLatest,
	}
	if err := cost.meta.Validate(); err != nil {
		return nil, err
	}
	if len(normalized) == 0 {
		return cost, nil
	}

	committed, err := c.readCommitted(ctx, costKey, costBaseline)
	if err != nil {
		return nil, err
	}
	cost.plan(Coalesce(AccumulateCost(normalized, baseline, costBaseline, price.PerUnit)), committed)
	return cost, nil
}

// commit writes the rows and realigned anchors of s in one batch, then anchors
// the current bucket.
func (c *Coordinator) commit(ctx context.Context, s series) (bool, error) {
	if rows := s.writes(); len(rows) > 0 {
		if err := c.sink.WriteRows(ctx, s.meta, rows); err != nil {
			return false, fmt.Errorf("write rows for %s: %w", s.meta.StatisticID, err)
		}
	}
	return MaybeWriteAnchor(ctx, c.sink, s.meta, s.last, c.now())
}

// recordLatest stores the newest reading as a raw sample when the sink keeps raw history.
func (c *Coordinator) recordLatest(ctx context.Context, key statistics.StatisticKey, p statistics.DataPoint) {
	recorder, ok := c.sink.(storage.SampleRecorder)
	if !ok {
		return
	}
	if err := recorder.RecordSample(ctx, key, p.Timestamp, p.Reading); err != nil {
		slog.Warn("[Coordinator] Recording latest sample failed", "statistic_id", key, "error", err)
	}
}

// verify reads the last row back until the sink reports it or attempts run
// out. The sink may commit asynchronously; a miss is logged, not returned.
func (c *Coordinator) verify(ctx context.Context, key statistics.StatisticKey, want statistics.Baseline) bool {
	for attempt := 1; attempt <= c.opts.VerifyAttempts; attempt++ {
		got, err := c.sink.ReadLastRow(ctx, key)
		if err == nil && got.Found && !got.Timestamp.Before(want.Timestamp) && !got.Sum.LessThan(want.Sum) {
			return true
		}
		if attempt == c.opts.VerifyAttempts {
			break
		}
		timer := time.NewTimer(c.opts.VerifyDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
	if c.opts.VerifyAttempts > 0 {
		slog.Warn("[Coordinator] Read-back verification failed",
			"statistic_id", key,
			"bucket", want.Timestamp,
			"sum", want.Sum.String(),
			"attempts", c.opts.VerifyAttempts,
		)
	}
	return false
}
