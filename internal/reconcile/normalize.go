package reconcile

import (
	"log/slog"

	"github.com/aevon-lab/meterstats/internal/core/statistics"
)

// Normalize clamps every reading to be at least the previous output reading.
// Points must already be in timestamp order. When the baseline was found, the
// first point is clamped against the baseline state as well, so a glitch right
// after a previous import cannot produce a negative delta.
//
// This must run before Accumulate: clamping afterwards is too late, the
// negative delta is already in the sum.
func Normalize(points []statistics.DataPoint, baseline statistics.Baseline) []statistics.DataPoint {
	out := make([]statistics.DataPoint, len(points))
	floor, hasFloor := baseline.State, baseline.Found
	for i, p := range points {
		out[i] = p
		if hasFloor && p.Reading.LessThan(floor) {
			slog.Debug("[Normalizer] Clamped non-increasing reading",
				"timestamp", p.Timestamp,
				"reading", p.Reading.String(),
				"clamped_to", floor.String(),
			)
			out[i].Reading = floor
		}
		floor, hasFloor = out[i].Reading, true
	}
	return out
}
