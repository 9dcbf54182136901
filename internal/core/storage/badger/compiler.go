package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aevon-lab/meterstats/internal/core/statistics"
	"github.com/dgraph-io/badger/v4"
	"github.com/shopspring/decimal"
)

// Compiler is the store's own background statistics compiler. Like the
// recorder it stands in for, it derives an hourly row for a bucket from the
// raw samples it sees and an in-memory running total that it never reloads.
//
// That total goes stale as soon as rows are imported behind its back, so a
// compiled row can carry a sum far below the committed series. It never
// overwrites a bucket that already holds a row.
type Compiler struct {
	store *Store

	mu     sync.Mutex
	totals map[statistics.StatisticKey]statistics.Baseline
}

// NewCompiler creates a compiler with an empty running total for every key.
func NewCompiler(store *Store) *Compiler {
	return &Compiler{
		store:  store,
		totals: make(map[statistics.StatisticKey]statistics.Baseline),
	}
}

// Run compiles the current bucket of every known key on each tick until ctx is done.
func (c *Compiler) Run(ctx context.Context, interval time.Duration) {
	slog.Info("[Compiler] Starting statistics compiler", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("[Compiler] Stopping (context cancelled)")
			return
		case now := <-ticker.C:
			if err := c.CompileAll(ctx, now); err != nil {
				slog.Error("[Compiler] Compile failed", "error", err)
			}
		}
	}
}

// CompileAll compiles HourFloor(now) for every key with stored metadata.
func (c *Compiler) CompileAll(ctx context.Context, now time.Time) error {
	keys, err := c.store.Keys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if _, err := c.CompileBucket(ctx, key, statistics.HourFloor(now)); err != nil {
			return fmt.Errorf("compile %s: %w", key, err)
		}
	}
	return nil
}

// CompileBucket writes an hourly and a short-term row for bucket from raw
// samples, unless the bucket already has an hourly row or saw no samples.
// It reports whether a row was written.
func (c *Compiler) CompileBucket(ctx context.Context, key statistics.StatisticKey, bucket time.Time) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	bucket = statistics.HourFloor(bucket)
	var written bool
	var compiled statistics.AggregateRow
	err := c.store.do(ctx, "compile bucket", func() error {
		return c.store.db.Update(func(txn *badger.Txn) error {
			if _, err := txn.Get(rowKey(tierHourly, key, bucket)); err == nil {
				return nil
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			state, ok, err := lastSample(txn, key, bucket, bucket.Add(statistics.BucketSize))
			if err != nil || !ok {
				return err
			}

			total, seen := c.totals[key]
			sum := decimal.Zero
			if seen {
				sum = total.Sum.Add(state.Sub(total.State))
			}
			compiled = statistics.AggregateRow{Start: bucket, State: state, Sum: sum}

			value, err := json.Marshal(rowRecord{Start: bucket.Unix(), State: state.String(), Sum: sum.String()})
			if err != nil {
				return err
			}
			if err := txn.Set(rowKey(tierHourly, key, bucket), value); err != nil {
				return err
			}
			if err := txn.Set(rowKey(tierShortTerm, key, bucket), value); err != nil {
				return err
			}
			written = true
			return nil
		})
	})
	if err != nil {
		return false, err
	}
	if written {
		c.totals[key] = statistics.BaselineFromRow(compiled)
		slog.Debug("[Compiler] Compiled bucket", "statistic_id", key, "bucket", bucket, "sum", compiled.Sum.String())
	}
	return written, nil
}

// Forget drops the running total of key, as a restart would.
func (c *Compiler) Forget(key statistics.StatisticKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.totals, key)
}

// lastSample returns the newest raw sample in [start, end).
func lastSample(txn *badger.Txn, key statistics.StatisticKey, start, end time.Time) (decimal.Decimal, bool, error) {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = true
	opts.Prefix = seriesPrefix(tierRaw, key)
	it := txn.NewIterator(opts)
	defer it.Close()

	it.Seek(rowKey(tierRaw, key, end.Add(-time.Nanosecond)))
	if !it.ValidForPrefix(opts.Prefix) {
		return decimal.Zero, false, nil
	}
	k := it.Item().Key()
	if string(k) < string(rowKey(tierRaw, key, start)) {
		return decimal.Zero, false, nil
	}

	var rec sampleRecord
	if err := it.Item().Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return decimal.Zero, false, fmt.Errorf("decode sample: %w", err)
	}
	state, err := decimal.NewFromString(rec.State)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("decode sample state: %w", err)
	}
	return state, true, nil
}
