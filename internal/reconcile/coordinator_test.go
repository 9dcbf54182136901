package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aevon-lab/meterstats/internal/core/statistics"
	"github.com/aevon-lab/meterstats/internal/meters"
	storagemocks "github.com/aevon-lab/meterstats/internal/mocks/storage"
	"github.com/aevon-lab/meterstats/internal/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testMeter = "m1"

var testKey = statistics.KeyForMeter(testMeter)

type fixture struct {
	sink   *memSink
	source *storagemocks.Source
	coord  *Coordinator
}

func newFixture(t *testing.T, now time.Time, prices pricing.Source, ids ...string) *fixture {
	t.Helper()
	if len(ids) == 0 {
		ids = []string{testMeter}
	}
	list := make([]meters.Meter, len(ids))
	for i, id := range ids {
		list[i] = meters.Meter{ID: id, Name: statistics.StatisticName(id)}
	}

	f := &fixture{sink: newMemSink(), source: storagemocks.NewSource(t)}
	f.coord = NewCoordinator(f.sink, f.source, meters.NewStaticRepository(list), prices, Options{VerifyAttempts: 1})
	f.coord.now = func() time.Time { return now }
	return f
}

func (f *fixture) history(points ...statistics.DataPoint) {
	f.source.EXPECT().FetchHistory(mock.Anything, testMeter, DefaultImportDays).Return(points, nil)
}

func TestCoordinator_Import_ContinuesFromCommittedRow(t *testing.T) {
	f := newFixture(t, t0.Add(2*time.Hour+10*time.Minute), nil)
	f.sink.put(testKey, t0, "50", "100")
	f.history(pt(t0.Add(time.Hour), "55"), pt(t0.Add(2*time.Hour), "60"))

	res, err := f.coord.Import(context.Background(), ImportRequest{MeterID: testMeter})

	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.False(t, res.AnchorWritten)
	assert.True(t, res.Verified)
	assert.NotEmpty(t, res.RunID)
	require.NotNil(t, res.LastBucket)
	assert.Equal(t, t0.Add(2*time.Hour), *res.LastBucket)
	assert.Equal(t, []string{"100", "105", "110"}, sums(f.sink.rows(testKey)))
}

func TestCoordinator_Import_ClampsDipAgainstBaseline(t *testing.T) {
	f := newFixture(t, t0.Add(time.Hour+time.Minute), nil)
	f.sink.put(testKey, t0, "50", "100")
	f.history(pt(t0.Add(time.Hour), "48"))

	_, err := f.coord.Import(context.Background(), ImportRequest{MeterID: testMeter})

	require.NoError(t, err)
	rows := f.sink.rows(testKey)
	require.Len(t, rows, 2)
	assertDecimal(t, "50", rows[1].State)
	assertDecimal(t, "100", rows[1].Sum)
}

func TestCoordinator_Import_IsIdempotent(t *testing.T) {
	now := t0.Add(5*time.Hour + 5*time.Minute)
	points := []statistics.DataPoint{
		pt(t0.Add(10*time.Minute), "11"),
		pt(t0.Add(40*time.Minute), "12"),
		pt(t0.Add(time.Hour+15*time.Minute), "20"),
		pt(t0.Add(time.Hour+45*time.Minute), "21"),
	}
	f := newFixture(t, now, nil)
	f.history(points...)

	first, err := f.coord.Import(context.Background(), ImportRequest{MeterID: testMeter})
	require.NoError(t, err)
	assert.True(t, first.AnchorWritten)
	rowsAfterFirst := f.sink.rows(testKey)
	writesAfterFirst := f.sink.writes

	second, err := f.coord.Import(context.Background(), ImportRequest{MeterID: testMeter})
	require.NoError(t, err)

	assert.Zero(t, second.Imported)
	assert.False(t, second.AnchorWritten)
	assert.Equal(t, writesAfterFirst, f.sink.writes)
	assert.Equal(t, rowsAfterFirst, f.sink.rows(testKey))
}

func TestCoordinator_Import_SubHourRerunWritesNothing(t *testing.T) {
	f := newFixture(t, t0.Add(50*time.Minute), nil)
	f.history(pt(t0.Add(10*time.Minute), "11"), pt(t0.Add(40*time.Minute), "12"))

	_, err := f.coord.Import(context.Background(), ImportRequest{MeterID: testMeter})
	require.NoError(t, err)
	writes := f.sink.writes

	res, err := f.coord.Import(context.Background(), ImportRequest{MeterID: testMeter})
	require.NoError(t, err)

	assert.Zero(t, res.Imported)
	assert.Equal(t, writes, f.sink.writes)
	assert.Equal(t, []string{"12"}, sums(f.sink.rows(testKey)))
}

func TestCoordinator_Import_AnchorsCurrentBucket(t *testing.T) {
	lastHour := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	f := newFixture(t, lastHour.Add(65*time.Minute), nil)
	f.sink.put(testKey, lastHour, "11581.4", "11581.4")
	f.history()

	res, err := f.coord.Import(context.Background(), ImportRequest{MeterID: testMeter})

	require.NoError(t, err)
	assert.True(t, res.AnchorWritten)
	rows := f.sink.rows(testKey)
	require.Len(t, rows, 2)
	assert.Equal(t, lastHour.Add(time.Hour), rows[1].Start)
	assertDecimal(t, "11581.4", rows[1].Sum)
	assertDecimal(t, "11581.4", rows[1].State)
	assert.True(t, rows[1].Anchor)
	assert.Equal(t, 1, f.sink.anchors)
}

func TestCoordinator_Import_RealDataReplacesAnchor(t *testing.T) {
	lastHour := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	f := newFixture(t, lastHour.Add(90*time.Minute), nil)
	f.sink.put(testKey, lastHour, "50", "100")
	f.sink.putAnchor(testKey, lastHour.Add(time.Hour), "50", "100")
	f.history(pt(lastHour.Add(80*time.Minute), "57"))

	res, err := f.coord.Import(context.Background(), ImportRequest{MeterID: testMeter})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	rows := f.sink.rows(testKey)
	require.Len(t, rows, 2)
	assertDecimal(t, "57", rows[1].State)
	assertDecimal(t, "107", rows[1].Sum)
	assert.False(t, rows[1].Anchor)
}

func TestCoordinator_Import_UnknownUnitWritesNothing(t *testing.T) {
	f := newFixture(t, t0.Add(3*time.Hour), nil)
	bad := pt(t0.Add(time.Hour), "3")
	bad.Unit = "10 CF"
	f.history(pt(t0, "1"), bad, pt(t0.Add(2*time.Hour), "5"))

	_, err := f.coord.Import(context.Background(), ImportRequest{MeterID: testMeter})

	require.ErrorIs(t, err, statistics.ErrUnrecognizedUnit)
	assert.Zero(t, f.sink.writes)
	assert.Empty(t, f.sink.rows(testKey))
}

func TestCoordinator_Import_ConvertsBillingUnits(t *testing.T) {
	f := newFixture(t, t0.Add(time.Hour+time.Minute), nil)
	a, b := pt(t0, "1"), pt(t0.Add(time.Hour), "2")
	a.Unit, b.Unit = "CCF", "CCF"
	f.history(a, b)

	_, err := f.coord.Import(context.Background(), ImportRequest{MeterID: testMeter})

	require.NoError(t, err)
	rows := f.sink.rows(testKey)
	require.Len(t, rows, 2)
	assertDecimal(t, "748.052", rows[0].Sum)
	assertDecimal(t, "1496.104", rows[1].State)
	assertDecimal(t, "1496.104", rows[1].Sum)
	assert.Equal(t, statistics.UnitGallons, f.sink.meta[testKey].Unit)
}

func TestCoordinator_Import_DropsRequestWhileKeyBusy(t *testing.T) {
	f := newFixture(t, t0, nil)
	require.True(t, f.coord.locks.TryAcquire(testKey.String()))

	_, err := f.coord.Import(context.Background(), ImportRequest{MeterID: testMeter})

	require.ErrorIs(t, err, ErrImportInProgress)
	f.source.AssertNotCalled(t, "FetchHistory", mock.Anything, mock.Anything, mock.Anything)
	assert.Zero(t, f.sink.writes)
}

func TestCoordinator_Import_ReleasesKeyAfterRun(t *testing.T) {
	f := newFixture(t, t0, nil)
	f.source.EXPECT().FetchHistory(mock.Anything, testMeter, 30).Return(nil, errors.New("timeout")).Once()

	_, err := f.coord.Import(context.Background(), ImportRequest{MeterID: testMeter, Days: 30})

	require.Error(t, err)
	assert.False(t, f.coord.locks.isHeld(testKey.String()))
}

func TestCoordinator_Import_RequestValidation(t *testing.T) {
	f := newFixture(t, t0, nil)

	_, err := f.coord.Import(context.Background(), ImportRequest{MeterID: testMeter, Days: MaxImportDays + 1})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.coord.Import(context.Background(), ImportRequest{})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.coord.Import(context.Background(), ImportRequest{MeterID: "nope"})
	require.ErrorIs(t, err, ErrUnknownMeter)
}

func TestCoordinator_Import_ForceOverwriteRecomputesFromPrecedingRow(t *testing.T) {
	f := newFixture(t, t0.Add(2*time.Hour+time.Minute), nil)
	f.sink.put(testKey, t0, "50", "100")
	f.sink.put(testKey, t0.Add(time.Hour), "55", "999")
	f.sink.put(testKey, t0.Add(2*time.Hour), "60", "1000")
	f.history(pt(t0.Add(time.Hour), "55"), pt(t0.Add(2*time.Hour), "60"))

	res, err := f.coord.Import(context.Background(), ImportRequest{MeterID: testMeter, ForceOverwrite: true})

	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, []string{"100", "105", "110"}, sums(f.sink.rows(testKey)))
}

func TestCoordinator_Import_CostCompanion(t *testing.T) {
	rate := decimal.RequireFromString("0.01")
	f := newFixture(t, t0.Add(3*time.Hour+time.Minute), pricing.NewStatic(&rate, ""))
	f.history(
		pt(t0, "100"),
		pt(t0.Add(time.Hour), "105"),
		pt(t0.Add(2*time.Hour), "112"),
		pt(t0.Add(3*time.Hour), "115"),
	)

	res, err := f.coord.Import(context.Background(), ImportRequest{MeterID: testMeter})

	require.NoError(t, err)
	assert.Equal(t, 4, res.CostRows)
	costKey := statistics.CostKey(testKey)
	assert.Equal(t, []string{"1", "1.05", "1.12", "1.15"}, sums(f.sink.rows(costKey)))
	assert.Equal(t, pricing.DefaultCurrency, f.sink.meta[costKey].Unit)
	assert.Equal(t, "", f.sink.meta[costKey].UnitClass)
}

func TestCoordinator_Import_PurgesRawHistory(t *testing.T) {
	f := newFixture(t, t0.Add(time.Minute), nil)
	f.sink.raw[testKey] = 42
	f.history(pt(t0, "1"))

	res, err := f.coord.Import(context.Background(), ImportRequest{MeterID: testMeter, PurgeRawAfter: true})

	require.NoError(t, err)
	assert.Equal(t, int64(42), res.PurgedRaw)
	assert.Zero(t, f.sink.raw[testKey])
}

func TestCoordinator_ImportAll_ContinuesPastFailures(t *testing.T) {
	f := newFixture(t, t0.Add(time.Minute), nil, "m1", "m2", "m3")
	f.source.EXPECT().FetchHistory(mock.Anything, "m1", 3).Return([]statistics.DataPoint{pt(t0, "1")}, nil)
	f.source.EXPECT().FetchHistory(mock.Anything, "m2", 3).Return(nil, errors.New("upstream 503"))
	f.source.EXPECT().FetchHistory(mock.Anything, "m3", 3).Return([]statistics.DataPoint{pt(t0, "7")}, nil)

	results, err := f.coord.ImportAll(context.Background(), 3)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "m2")
	assert.Len(t, results, 2)
}

func TestCoordinator_ImportAll_BusyKeyIsNotAFailure(t *testing.T) {
	f := newFixture(t, t0, nil)
	require.True(t, f.coord.locks.TryAcquire(testKey.String()))

	results, err := f.coord.ImportAll(context.Background(), 3)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCoordinator_Replay(t *testing.T) {
	f := newFixture(t, t0.Add(2*time.Hour+5*time.Minute), nil)
	f.sink.put(testKey, t0, "50", "100")
	f.sink.put(testKey, t0.Add(time.Hour), "55", "999")
	f.sink.put(testKey, t0.Add(2*time.Hour), "60", "1000")
	start, end := t0.Add(time.Hour), t0.Add(3*time.Hour)
	f.source.EXPECT().FetchRange(mock.Anything, testMeter, start, end).Return([]statistics.DataPoint{
		pt(t0.Add(30*time.Minute), "52"),
		pt(t0.Add(time.Hour), "55"),
		pt(t0.Add(2*time.Hour), "60"),
		pt(end, "70"),
	}, nil).Once()

	res, err := f.coord.Replay(context.Background(), ReplayRequest{MeterID: testMeter, Start: start, End: end})

	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, []string{"100", "105", "110"}, sums(f.sink.rows(testKey)))
}

func TestCoordinator_Replay_RejectsOtherGranularities(t *testing.T) {
	f := newFixture(t, t0, nil)

	for _, g := range []string{"DAILY", "hourly", "MONTHLY"} {
		_, err := f.coord.Replay(context.Background(), ReplayRequest{
			MeterID:     testMeter,
			Start:       t0,
			End:         t0.Add(time.Hour),
			Granularity: g,
		})
		require.ErrorIs(t, err, ErrInvalidGranularity, g)
	}

	_, err := f.coord.Replay(context.Background(), ReplayRequest{MeterID: testMeter, Start: t0, End: t0})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCoordinator_ValidateMonotonic(t *testing.T) {
	f := newFixture(t, t0, nil)
	for i := 0; i < validationBatchSize+5; i++ {
		sum := decimal.NewFromInt(int64(i))
		if i == validationBatchSize {
			sum = decimal.NewFromInt(3)
		}
		f.sink.put(testKey, t0.Add(time.Duration(i)*time.Hour), sum.String(), sum.String())
	}

	res, err := f.coord.ValidateMonotonic(context.Background(), testKey, nil)

	require.NoError(t, err)
	assert.Equal(t, validationBatchSize+5, res.Checked)
	require.Len(t, res.Violations, 1)
	v := res.Violations[0]
	assert.Equal(t, validationBatchSize, v.Index)
	assertDecimal(t, "999", v.PreviousSum)
	assertDecimal(t, "3", v.CurrentSum)
	assertDecimal(t, "-996", v.Delta())
}

func TestCoordinator_ValidateMonotonic_Window(t *testing.T) {
	f := newFixture(t, t0, nil)
	f.sink.put(testKey, t0, "10", "10")
	f.sink.put(testKey, t0.Add(time.Hour), "5", "5")
	f.sink.put(testKey, t0.Add(2*time.Hour), "6", "6")
	since := t0.Add(time.Hour)

	res, err := f.coord.ValidateMonotonic(context.Background(), testKey, &since)

	require.NoError(t, err)
	assert.Equal(t, 2, res.Checked)
	assert.Empty(t, res.Violations)
	assert.Equal(t, &since, res.StartTime)
}

func TestCoordinator_ValidateMonotonic_InvalidKey(t *testing.T) {
	f := newFixture(t, t0, nil)

	_, err := f.coord.ValidateMonotonic(context.Background(), "Not A Key", nil)

	require.ErrorIs(t, err, statistics.ErrInvalidKey)
}

func TestCoordinator_Reset(t *testing.T) {
	f := newFixture(t, t0, nil)
	costKey := statistics.CostKey(testKey)
	f.sink.put(testKey, t0, "1", "1")
	f.sink.put(testKey, t0.Add(time.Hour), "2", "2")
	f.sink.shortTerm[testKey] = 24
	f.sink.put(costKey, t0, "0.01", "0.01")

	_, err := f.coord.Reset(context.Background(), testKey, false)
	require.ErrorIs(t, err, ErrResetNotConfirmed)
	assert.Len(t, f.sink.rows(testKey), 2)

	res, err := f.coord.Reset(context.Background(), testKey, true)
	require.NoError(t, err)
	assert.Equal(t, int64(26), res.Deleted)
	assert.Equal(t, int64(1), res.CostDeleted)

	for _, key := range []statistics.StatisticKey{testKey, costKey} {
		rows, err := f.sink.ReadRows(context.Background(), key, nil, 0, validationBatchSize)
		require.NoError(t, err)
		assert.Empty(t, rows)
		last, err := f.sink.ReadLastRow(context.Background(), key)
		require.NoError(t, err)
		assert.False(t, last.Found)
	}
	assert.Zero(t, f.sink.shortTerm[testKey])

	f.coord.now = func() time.Time { return t0.Add(time.Minute) }
	f.history(pt(t0, "7"))
	imported, err := f.coord.Import(context.Background(), ImportRequest{MeterID: testMeter})
	require.NoError(t, err)
	assert.Equal(t, 1, imported.Imported)
	assert.Equal(t, []string{"7"}, sums(f.sink.rows(testKey)))
	assertDecimal(t, "7", f.sink.rows(testKey)[0].State)
}

func TestCoordinator_Reset_BusyKey(t *testing.T) {
	f := newFixture(t, t0, nil)
	require.True(t, f.coord.locks.TryAcquire(testKey.String()))

	_, err := f.coord.Reset(context.Background(), statistics.CostKey(testKey), true)

	require.ErrorIs(t, err, ErrImportInProgress)
}
