package reconcile

import (
	"sort"
	"time"

	"github.com/aevon-lab/meterstats/internal/core/statistics"
	"github.com/samber/lo"
)

// FilterNew keeps points strictly after lastImported. A zero lastImported keeps everything.
// Re-running an import over an already imported window therefore adds nothing.
func FilterNew(points []statistics.DataPoint, lastImported time.Time) []statistics.DataPoint {
	if lastImported.IsZero() {
		return points
	}
	return lo.Filter(points, func(p statistics.DataPoint, _ int) bool {
		return p.Timestamp.After(lastImported)
	})
}

// SortAndDedupe orders points by timestamp and keeps the last point seen for
// any duplicated timestamp.
func SortAndDedupe(points []statistics.DataPoint) []statistics.DataPoint {
	if len(points) == 0 {
		return nil
	}

	latest := make(map[int64]statistics.DataPoint, len(points))
	for _, p := range points {
		latest[p.Timestamp.UnixNano()] = p
	}

	out := lo.Values(latest)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// withinWindow keeps points in [start, end).
func withinWindow(points []statistics.DataPoint, start, end time.Time) []statistics.DataPoint {
	return lo.Filter(points, func(p statistics.DataPoint, _ int) bool {
		return !p.Timestamp.Before(start) && p.Timestamp.Before(end)
	})
}
