package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aevon-lab/meterstats/internal/core/statistics"
	"github.com/aevon-lab/meterstats/internal/core/storage"
	"github.com/aevon-lab/meterstats/internal/meters"
	"github.com/aevon-lab/meterstats/internal/pricing"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxParallel    = 4
	defaultVerifyDelay    = 500 * time.Millisecond
	defaultVerifyAttempts = 3
)

// Options tunes the coordinator.
type Options struct {
	MaxParallel    int           // meters imported concurrently by ImportAll
	VerifyAttempts int           // read-back attempts after a write; 0 disables verification
	VerifyDelay    time.Duration // pause between read-back attempts
}

// DefaultOptions returns the settings used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		MaxParallel:    defaultMaxParallel,
		VerifyAttempts: defaultVerifyAttempts,
		VerifyDelay:    defaultVerifyDelay,
	}
}

func (o Options) normalized() Options {
	n := o
	if n.MaxParallel <= 0 {
		n.MaxParallel = defaultMaxParallel
	}
	if n.VerifyAttempts < 0 {
		n.VerifyAttempts = 0
	}
	if n.VerifyDelay < 0 {
		n.VerifyDelay = 0
	}
	return n
}

// Coordinator runs the import pipeline and the maintenance operations.
//
// Concurrent requests for one key are serialized by a non-blocking lock: the
// loser gets ErrImportInProgress and nothing is queued. Different keys run in
// parallel.
type Coordinator struct {
	sink   storage.Sink
	source storage.Source
	meters meters.Repository
	prices pricing.Source // nil disables the cost series
	locks  *KeyLock
	opts   Options
	now    func() time.Time
}

// NewCoordinator wires the pipeline. prices may be nil.
func NewCoordinator(
	sink storage.Sink,
	source storage.Source,
	registry meters.Repository,
	prices pricing.Source,
	opts Options,
) *Coordinator {
	return &Coordinator{
		sink:   sink,
		source: source,
		meters: registry,
		prices: prices,
		locks:  NewKeyLock(),
		opts:   opts.normalized(),
		now:    time.Now,
	}
}

// Meters lists the registered meters.
func (c *Coordinator) Meters(ctx context.Context) ([]meters.Meter, error) {
	return c.meters.List(ctx)
}

// Import fetches the last req.Days of history for one meter and commits it.
func (c *Coordinator) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	req, err := req.normalized()
	if err != nil {
		return nil, err
	}
	meter, err := c.lookupMeter(ctx, req.MeterID)
	if err != nil {
		return nil, err
	}

	key := meter.Key()
	if !c.locks.TryAcquire(key.String()) {
		slog.Warn("[Coordinator] Import already running, request dropped", "statistic_id", key)
		return nil, fmt.Errorf("%w: %s", ErrImportInProgress, key)
	}
	defer c.locks.Release(key.String())

	points, err := c.source.FetchHistory(ctx, meter.ID, req.Days)
	if err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", meter.ID, err)
	}

	return c.run(ctx, pipelineRun{
		meter:     *meter,
		points:    points,
		recompute: req.ForceOverwrite,
		purgeRaw:  req.PurgeRawAfter,
	})
}

// ImportAll imports every registered meter, at most Options.MaxParallel at a
// time. A failure for one meter does not stop the others; the returned error
// joins every failure. Meters skipped because an import was already running
// are not failures.
func (c *Coordinator) ImportAll(ctx context.Context, days int) ([]ImportResult, error) {
	all, err := c.meters.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list meters: %w", err)
	}

	var (
		mu       sync.Mutex
		results  = make([]ImportResult, 0, len(all))
		failures []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.MaxParallel)
	for _, m := range all {
		m := m
		g.Go(func() error {
			res, err := c.Import(gctx, ImportRequest{MeterID: m.ID, Days: days})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, ErrImportInProgress):
			case err != nil:
				slog.Error("[Coordinator] Import failed", "meter_id", m.ID, "error", err)
				failures = append(failures, fmt.Errorf("meter %s: %w", m.ID, err))
			default:
				results = append(results, *res)
			}
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(failures...)
}

// Replay re-imports [Start, End) from the source, recomputing the window from
// the last row preceding it.
func (c *Coordinator) Replay(ctx context.Context, req ReplayRequest) (*ImportResult, error) {
	req, err := req.normalized()
	if err != nil {
		return nil, err
	}
	meter, err := c.lookupMeter(ctx, req.MeterID)
	if err != nil {
		return nil, err
	}

	key := meter.Key()
	if !c.locks.TryAcquire(key.String()) {
		return nil, fmt.Errorf("%w: %s", ErrImportInProgress, key)
	}
	defer c.locks.Release(key.String())

	start, end := req.Start.UTC(), req.End.UTC()
	points, err := c.source.FetchRange(ctx, meter.ID, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch range for %s: %w", meter.ID, err)
	}

	return c.run(ctx, pipelineRun{
		meter:       *meter,
		points:      withinWindow(points, start, end),
		recompute:   true,
		windowStart: statistics.HourFloor(start),
	})
}

// ValidateMonotonic scans the hourly rows of key, starting at since when
// given, and reports every place the cumulative sum decreased. Rows are read
// in pages of 1000. Nothing is corrected.
func (c *Coordinator) ValidateMonotonic(ctx context.Context, key statistics.StatisticKey, since *time.Time) (*ValidationResult, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	result := &ValidationResult{StatisticID: key, Violations: []Violation{}, StartTime: since}
	var (
		previous decimal.Decimal
		havePrev bool
	)
	for offset := 0; ; offset += validationBatchSize {
		rows, err := c.sink.ReadRows(ctx, key, since, offset, validationBatchSize)
		if err != nil {
			return nil, fmt.Errorf("read rows for %s at offset %d: %w", key, offset, err)
		}
		for i, row := range rows {
			if havePrev && row.Sum.LessThan(previous) {
				result.Violations = append(result.Violations, Violation{
					Index:       offset + i,
					Start:       row.Start,
					PreviousSum: previous,
					CurrentSum:  row.Sum,
				})
			}
			previous, havePrev = row.Sum, true
		}
		result.Checked += len(rows)
		if len(rows) < validationBatchSize {
			break
		}
	}

	if len(result.Violations) > 0 {
		slog.Warn("[Coordinator] Monotonic violations found",
			"statistic_id", key,
			"checked", result.Checked,
			"violations", len(result.Violations),
		)
	}
	return result, nil
}

// Reset deletes every short-term and hourly row for key. Resetting a
// consumption key also resets its cost companion. confirm must be true.
func (c *Coordinator) Reset(ctx context.Context, key statistics.StatisticKey, confirm bool) (*ResetResult, error) {
	if !confirm {
		return nil, ErrResetNotConfirmed
	}
	if err := key.Validate(); err != nil {
		return nil, err
	}

	lockKey := statistics.StatisticKey(strings.TrimSuffix(key.String(), "_cost"))
	if !c.locks.TryAcquire(lockKey.String()) {
		return nil, fmt.Errorf("%w: %s", ErrImportInProgress, lockKey)
	}
	defer c.locks.Release(lockKey.String())

	result := &ResetResult{StatisticID: key}
	deleted, err := c.sink.DeleteAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("delete statistics for %s: %w", key, err)
	}
	result.Deleted = deleted

	if !key.IsCost() {
		costDeleted, err := c.sink.DeleteAll(ctx, statistics.CostKey(key))
		if err != nil {
			return nil, fmt.Errorf("delete statistics for %s: %w", statistics.CostKey(key), err)
		}
		result.CostDeleted = costDeleted
	}

	slog.Info("[Coordinator] Statistics reset",
		"statistic_id", key,
		"deleted", result.Deleted,
		"cost_deleted", result.CostDeleted,
	)
	return result, nil
}

func (c *Coordinator) lookupMeter(ctx context.Context, id string) (*meters.Meter, error) {
	meter, err := c.meters.Get(ctx, id)
	if errors.Is(err, meters.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMeter, id)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup meter %s: %w", id, err)
	}
	return meter, nil
}
