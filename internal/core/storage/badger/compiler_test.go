package badger

import (
	"context"
	"testing"
	"time"

	"github.com/aevon-lab/meterstats/internal/core/statistics"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompiler_StaleTotalProducesDrop(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.WriteRows(ctx, meta, []statistics.AggregateRow{row(t0, "11581.4", "11581.4")}))
	require.NoError(t, store.RecordSample(ctx, key, t0.Add(65*time.Minute), decimal.RequireFromString("11581.9")))

	written, err := NewCompiler(store).CompileBucket(ctx, key, t0.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, written)

	last, err := store.ReadLastRow(ctx, key)
	require.NoError(t, err)
	assert.True(t, last.Sum.LessThan(decimal.RequireFromString("11581.4")), "compiled sum %s", last.Sum)
}

func TestCompiler_SkipsOccupiedBucket(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	bucket := t0.Add(time.Hour)
	require.NoError(t, store.WriteRows(ctx, meta, []statistics.AggregateRow{row(bucket, "50", "100")}))
	require.NoError(t, store.RecordSample(ctx, key, bucket.Add(5*time.Minute), decimal.NewFromInt(51)))

	written, err := NewCompiler(store).CompileBucket(ctx, key, bucket)
	require.NoError(t, err)
	assert.False(t, written)

	last, err := store.ReadLastRow(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "100", last.Sum.String())
}

func TestCompiler_SkipsAnchoredBucket(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	bucket := t0.Add(time.Hour)
	anchor := row(bucket, "50", "100")
	anchor.Anchor = true
	require.NoError(t, store.WriteRows(ctx, meta, []statistics.AggregateRow{row(t0, "50", "100"), anchor}))
	require.NoError(t, store.RecordSample(ctx, key, bucket.Add(5*time.Minute), decimal.NewFromInt(51)))

	written, err := NewCompiler(store).CompileBucket(ctx, key, bucket)
	require.NoError(t, err)
	assert.False(t, written)

	rows, err := store.ReadRows(ctx, key, &bucket, 0, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Anchor)
	assert.Equal(t, "100", rows[0].Sum.String())
}

func TestCompiler_NoSamplesNoRow(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.WriteRows(ctx, meta, nil))
	require.NoError(t, store.RecordSample(ctx, key, t0.Add(-time.Minute), decimal.NewFromInt(1)))

	compiler := NewCompiler(store)
	require.NoError(t, compiler.CompileAll(ctx, t0.Add(30*time.Minute)))

	last, err := store.ReadLastRow(ctx, key)
	require.NoError(t, err)
	assert.False(t, last.Found)
}

func TestCompiler_RunningTotal(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	compiler := NewCompiler(store)
	require.NoError(t, store.RecordSample(ctx, key, t0.Add(time.Minute), decimal.NewFromInt(10)))
	require.NoError(t, store.RecordSample(ctx, key, t0.Add(61*time.Minute), decimal.NewFromInt(14)))

	_, err := compiler.CompileBucket(ctx, key, t0)
	require.NoError(t, err)
	_, err = compiler.CompileBucket(ctx, key, t0.Add(time.Hour))
	require.NoError(t, err)

	last, err := store.ReadLastRow(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "4", last.Sum.String())

	compiler.Forget(key)
	require.NoError(t, store.RecordSample(ctx, key, t0.Add(121*time.Minute), decimal.NewFromInt(20)))
	_, err = compiler.CompileBucket(ctx, key, t0.Add(2*time.Hour))
	require.NoError(t, err)

	last, err = store.ReadLastRow(ctx, key)
	require.NoError(t, err)
	assert.True(t, last.Sum.IsZero())
}
