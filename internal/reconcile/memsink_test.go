package reconcile

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aevon-lab/meterstats/internal/core/statistics"
	"github.com/shopspring/decimal"
)

// memSink is an in-memory storage.Sink used to check properties that span runs.
type memSink struct {
	mu        sync.Mutex
	hourly    map[statistics.StatisticKey]map[int64]statistics.AggregateRow
	shortTerm map[statistics.StatisticKey]int
	raw       map[statistics.StatisticKey]int
	meta      map[statistics.StatisticKey]statistics.Metadata
	writes    int
	anchors   int
	writeErr  error
}

func newMemSink() *memSink {
	return &memSink{
		hourly:    make(map[statistics.StatisticKey]map[int64]statistics.AggregateRow),
		shortTerm: make(map[statistics.StatisticKey]int),
		raw:       make(map[statistics.StatisticKey]int),
		meta:      make(map[statistics.StatisticKey]statistics.Metadata),
	}
}

func (s *memSink) WriteRows(_ context.Context, meta statistics.Metadata, rows []statistics.AggregateRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.writes++
	s.meta[meta.StatisticID] = meta
	bucket, ok := s.hourly[meta.StatisticID]
	if !ok {
		bucket = make(map[int64]statistics.AggregateRow)
		s.hourly[meta.StatisticID] = bucket
	}
	for _, row := range rows {
		if row.Anchor {
			s.anchors++
		}
		bucket[row.Start.Unix()] = row
		s.shortTerm[meta.StatisticID]++
	}
	return nil
}

func (s *memSink) sorted(key statistics.StatisticKey) []statistics.AggregateRow {
	out := make([]statistics.AggregateRow, 0, len(s.hourly[key]))
	for _, row := range s.hourly[key] {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func (s *memSink) ReadLastRow(_ context.Context, key statistics.StatisticKey) (statistics.Baseline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := statistics.ZeroBaseline()
	for _, row := range s.sorted(key) {
		if !row.Anchor {
			found = statistics.BaselineFromRow(row)
		}
	}
	return found, nil
}

func (s *memSink) ReadLastRowBefore(_ context.Context, key statistics.StatisticKey, before time.Time) (statistics.Baseline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := statistics.ZeroBaseline()
	for _, row := range s.sorted(key) {
		if !row.Start.Before(before) {
			break
		}
		if !row.Anchor {
			found = statistics.BaselineFromRow(row)
		}
	}
	return found, nil
}

func (s *memSink) ReadRows(_ context.Context, key statistics.StatisticKey, since *time.Time, offset, limit int) ([]statistics.AggregateRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []statistics.AggregateRow
	for _, row := range s.sorted(key) {
		if since != nil && row.Start.Before(*since) {
			continue
		}
		rows = append(rows, row)
	}
	if offset >= len(rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end], nil
}

func (s *memSink) PurgeRaw(_ context.Context, key statistics.StatisticKey, _ int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.raw[key]
	delete(s.raw, key)
	return int64(n), nil
}

func (s *memSink) DeleteAll(_ context.Context, key statistics.StatisticKey) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.hourly[key]) + s.shortTerm[key])
	delete(s.hourly, key)
	delete(s.shortTerm, key)
	return n, nil
}

// put seeds a committed row.
func (s *memSink) put(key statistics.StatisticKey, start time.Time, state, sum string) {
	s.seed(key, start, state, sum, false)
}

// putAnchor seeds a committed anchor row.
func (s *memSink) putAnchor(key statistics.StatisticKey, start time.Time, state, sum string) {
	s.seed(key, start, state, sum, true)
}

func (s *memSink) seed(key statistics.StatisticKey, start time.Time, state, sum string, anchor bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hourly[key] == nil {
		s.hourly[key] = make(map[int64]statistics.AggregateRow)
	}
	s.hourly[key][start.Unix()] = statistics.AggregateRow{
		Start:  start,
		State:  decimal.RequireFromString(state),
		Sum:    decimal.RequireFromString(sum),
		Anchor: anchor,
	}
}

func (s *memSink) rows(key statistics.StatisticKey) []statistics.AggregateRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(key)
}
