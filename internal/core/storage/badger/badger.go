package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aevon-lab/meterstats/internal/core/statistics"
	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/shopspring/decimal"
)

// Key layout: [tier (1 byte)][xxhash of statistic id (8 bytes)][unix nanos (8 bytes)].
// Metadata entries carry no timestamp.
const (
	tierMeta      byte = 'm'
	tierHourly    byte = 'h'
	tierShortTerm byte = 's'
	tierRaw       byte = 'r'

	prefixLen = 9
	keyLen    = prefixLen + 8
)

// Store is an embedded statistics sink on BadgerDB. It keeps the same three
// tiers as the Postgres sink: hourly rows, short-term rows and raw samples.
type Store struct {
	db *badger.DB
}

// Config holds BadgerDB configuration.
type Config struct {
	// Path to store database files
	Path string

	// InMemory mode (for testing)
	InMemory bool

	// MaxMemoryMB caps memtable plus caches; 0 uses a 48 MB budget.
	MaxMemoryMB int64
}

type rowRecord struct {
	Start  int64  `json:"start"`
	State  string `json:"state"`
	Sum    string `json:"sum"`
	Anchor bool   `json:"anchor,omitempty"`
}

type metaRecord struct {
	StatisticID string `json:"statistic_id"`
	Name        string `json:"name"`
	Source      string `json:"source"`
	HasSum      bool   `json:"has_sum"`
	HasMean     bool   `json:"has_mean"`
	Unit        string `json:"unit"`
	UnitClass   string `json:"unit_class"`
}

type sampleRecord struct {
	State string `json:"state"`
}

// New opens a BadgerDB store.
func New(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path).WithLogger(nil)
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}

	memTableSize := int64(16 << 20)
	if cfg.MaxMemoryMB > 0 {
		memTableSize = cfg.MaxMemoryMB << 20 / 3
	}

	opts = opts.
		WithCompression(options.Snappy).
		WithNumVersionsToKeep(1).
		WithMemTableSize(memTableSize).
		WithNumMemtables(3).
		WithBlockCacheSize(memTableSize / 2).
		WithIndexCacheSize(memTableSize / 4).
		WithMaxLevels(4).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithValueThreshold(1024).
		WithNumCompactors(2).
		WithValueLogFileSize(64 << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &Store{db: db}, nil
}

// WriteRows upserts hourly rows and the series metadata in one transaction.
// A batch larger than a single transaction allows fails with
// badger.ErrTxnTooBig and writes nothing.
func (s *Store) WriteRows(ctx context.Context, meta statistics.Metadata, rows []statistics.AggregateRow) error {
	return s.do(ctx, "write rows", func() error {
		metaValue, err := json.Marshal(toMetaRecord(meta))
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}

		return s.db.Update(func(txn *badger.Txn) error {
			if err := txn.Set(seriesPrefix(tierMeta, meta.StatisticID), metaValue); err != nil {
				return fmt.Errorf("write metadata: %w", err)
			}
			for _, row := range rows {
				value, err := json.Marshal(rowRecord{
					Start:  row.Start.Unix(),
					State:  row.State.String(),
					Sum:    row.Sum.String(),
					Anchor: row.Anchor,
				})
				if err != nil {
					return fmt.Errorf("encode row: %w", err)
				}
				if err := txn.Set(rowKey(tierHourly, meta.StatisticID, row.Start), value); err != nil {
					return fmt.Errorf("write row %s: %w", row.Start.Format(time.RFC3339), err)
				}
			}
			return nil
		})
	})
}

// ReadLastRow returns the newest imported hourly row for key. Anchor rows are skipped.
func (s *Store) ReadLastRow(ctx context.Context, key statistics.StatisticKey) (statistics.Baseline, error) {
	seek := append(seriesPrefix(tierHourly, key), 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
	return s.lastAtOrBefore(ctx, key, seek)
}

// ReadLastRowBefore returns the newest imported hourly row starting strictly before before.
func (s *Store) ReadLastRowBefore(ctx context.Context, key statistics.StatisticKey, before time.Time) (statistics.Baseline, error) {
	return s.lastAtOrBefore(ctx, key, rowKey(tierHourly, key, before.Add(-time.Nanosecond)))
}

func (s *Store) lastAtOrBefore(ctx context.Context, key statistics.StatisticKey, seek []byte) (statistics.Baseline, error) {
	baseline := statistics.ZeroBaseline()
	err := s.do(ctx, "read last row", func() error {
		return s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Reverse = true
			opts.Prefix = seriesPrefix(tierHourly, key)
			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek(seek); it.ValidForPrefix(opts.Prefix); it.Next() {
				row, err := decodeRow(it.Item())
				if err != nil {
					return err
				}
				if row.Anchor {
					continue
				}
				baseline = statistics.BaselineFromRow(row)
				return nil
			}
			return nil
		})
	})
	if err != nil {
		return statistics.Baseline{}, err
	}
	return baseline, nil
}

// ReadRows pages through hourly rows ordered by start.
func (s *Store) ReadRows(ctx context.Context, key statistics.StatisticKey, since *time.Time, offset, limit int) ([]statistics.AggregateRow, error) {
	var rows []statistics.AggregateRow
	err := s.do(ctx, "read rows", func() error {
		return s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = seriesPrefix(tierHourly, key)
			it := txn.NewIterator(opts)
			defer it.Close()

			seek := opts.Prefix
			if since != nil {
				seek = rowKey(tierHourly, key, *since)
			}
			skipped := 0
			for it.Seek(seek); it.ValidForPrefix(opts.Prefix); it.Next() {
				if skipped < offset {
					skipped++
					continue
				}
				if limit > 0 && len(rows) >= limit {
					break
				}
				row, err := decodeRow(it.Item())
				if err != nil {
					return err
				}
				rows = append(rows, row)
			}
			return nil
		})
	})
	return rows, err
}

// RecordSample appends a raw state sample for key.
func (s *Store) RecordSample(ctx context.Context, key statistics.StatisticKey, ts time.Time, state decimal.Decimal) error {
	return s.do(ctx, "record sample", func() error {
		value, err := json.Marshal(sampleRecord{State: state.String()})
		if err != nil {
			return err
		}
		return s.db.Update(func(txn *badger.Txn) error {
			return txn.Set(rowKey(tierRaw, key, ts), value)
		})
	})
}

// PurgeRaw deletes raw samples of key older than keepDays.
func (s *Store) PurgeRaw(ctx context.Context, key statistics.StatisticKey, keepDays int) (int64, error) {
	cutoff := time.Now().Add(-time.Duration(keepDays) * 24 * time.Hour)
	var purged int64
	err := s.do(ctx, "purge raw", func() error {
		keys, err := s.collectKeys(seriesPrefix(tierRaw, key), rowKey(tierRaw, key, cutoff))
		if err != nil {
			return err
		}
		wb := s.db.NewWriteBatch()
		defer wb.Cancel()
		for _, k := range keys {
			if err := wb.Delete(k); err != nil {
				return err
			}
		}
		if err := wb.Flush(); err != nil {
			return err
		}
		purged = int64(len(keys))
		return nil
	})
	return purged, err
}

// DeleteAll removes the short-term and hourly tiers of key.
func (s *Store) DeleteAll(ctx context.Context, key statistics.StatisticKey) (int64, error) {
	var deleted int64
	err := s.do(ctx, "delete statistics", func() error {
		prefixes := [][]byte{seriesPrefix(tierShortTerm, key), seriesPrefix(tierHourly, key)}
		for _, p := range prefixes {
			keys, err := s.collectKeys(p, nil)
			if err != nil {
				return err
			}
			deleted += int64(len(keys))
		}
		return s.db.DropPrefix(prefixes...)
	})
	return deleted, err
}

// Keys lists every statistic id with stored metadata.
func (s *Store) Keys(ctx context.Context) ([]statistics.StatisticKey, error) {
	var keys []statistics.StatisticKey
	err := s.do(ctx, "list keys", func() error {
		return s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte{tierMeta}
			it := txn.NewIterator(opts)
			defer it.Close()
			for it.Rewind(); it.Valid(); it.Next() {
				var m metaRecord
				if err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &m)
				}); err != nil {
					return fmt.Errorf("decode metadata: %w", err)
				}
				keys = append(keys, statistics.StatisticKey(m.StatisticID))
			}
			return nil
		})
	})
	return keys, err
}

// Ping reports whether the database is open.
func (s *Store) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger is closed")
	}
	return nil
}

// Close shuts down BadgerDB cleanly.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunGC runs value log garbage collection. badger.ErrNoRewrite means nothing
// was reclaimed and is not returned.
func (s *Store) RunGC(discardRatio float64) error {
	err := s.db.RunValueLogGC(discardRatio)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

// collectKeys returns keys with prefix, stopping before until when non-nil.
func (s *Store) collectKeys(prefix, until []byte) ([][]byte, error) {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			k := it.Item().KeyCopy(nil)
			if until != nil && string(k) >= string(until) {
				break
			}
			keys = append(keys, k)
		}
		return nil
	})
	return keys, err
}

// do runs fn but stops waiting when ctx is done. Badger transactions take no
// context, so a cancelled fn still finishes in the background.
func (s *Store) do(ctx context.Context, op string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%s operation cancelled: %w", op, ctx.Err())
	}
}

func seriesPrefix(tier byte, key statistics.StatisticKey) []byte {
	p := make([]byte, prefixLen)
	p[0] = tier
	binary.BigEndian.PutUint64(p[1:], xxhash.Sum64String(key.String()))
	return p
}

func rowKey(tier byte, key statistics.StatisticKey, ts time.Time) []byte {
	k := make([]byte, keyLen)
	copy(k, seriesPrefix(tier, key))
	binary.BigEndian.PutUint64(k[prefixLen:], uint64(ts.UnixNano()))
	return k
}

func decodeRow(item *badger.Item) (statistics.AggregateRow, error) {
	var rec rowRecord
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return statistics.AggregateRow{}, fmt.Errorf("decode row: %w", err)
	}
	state, err := decimal.NewFromString(rec.State)
	if err != nil {
		return statistics.AggregateRow{}, fmt.Errorf("decode state: %w", err)
	}
	sum, err := decimal.NewFromString(rec.Sum)
	if err != nil {
		return statistics.AggregateRow{}, fmt.Errorf("decode sum: %w", err)
	}
	return statistics.AggregateRow{
		Start:  time.Unix(rec.Start, 0).UTC(),
		State:  state,
		Sum:    sum,
		Anchor: rec.Anchor,
	}, nil
}

func toMetaRecord(m statistics.Metadata) metaRecord {
	return metaRecord{
		StatisticID: m.StatisticID.String(),
		Name:        m.Name,
		Source:      m.Source,
		HasSum:      m.HasSum,
		HasMean:     m.HasMean,
		Unit:        m.Unit,
		UnitClass:   m.UnitClass,
	}
}
