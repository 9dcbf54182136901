package reconcile

import (
	"github.com/aevon-lab/meterstats/internal/core/statistics"
	"github.com/shopspring/decimal"
)

// AccumulateCost derives the companion cost rows for the same points Accumulate
// consumed. Deltas are taken against the consumption baseline and scaled by
// price; the running total continues from the cost series' own baseline.
//
// price is sampled once per run and applied to every row, so re-importing a
// window after a price change reprices it at the new rate.
func AccumulateCost(
	points []statistics.DataPoint,
	baseline statistics.Baseline,
	costBaseline statistics.Baseline,
	price decimal.Decimal,
) []statistics.AggregateRow {
	rows := accumulate(points, baseline, costBaseline.Sum, price)
	for i := range rows {
		rows[i].State = rows[i].Sum
	}
	return rows
}
