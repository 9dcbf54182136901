package reconcile

import (
	"testing"
	"time"

	"github.com/aevon-lab/meterstats/internal/core/statistics"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func pt(ts time.Time, reading string) statistics.DataPoint {
	return statistics.DataPoint{Timestamp: ts, Reading: dec(reading), Unit: "GAL"}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func sums(rows []statistics.AggregateRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Sum.String()
	}
	return out
}
