package reconcile

import (
	"testing"
	"time"

	"github.com/aevon-lab/meterstats/internal/core/statistics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		readings []string
		baseline statistics.Baseline
		want     []string
	}{
		{
			name:     "increasing readings pass through",
			readings: []string{"1", "2", "3"},
			baseline: statistics.ZeroBaseline(),
			want:     []string{"1", "2", "3"},
		},
		{
			name:     "dip is clamped to previous output",
			readings: []string{"10", "9", "11", "8"},
			baseline: statistics.ZeroBaseline(),
			want:     []string{"10", "10", "11", "11"},
		},
		{
			name:     "first point clamped against found baseline state",
			readings: []string{"48", "52"},
			baseline: statistics.Baseline{Timestamp: t0, State: dec("50"), Sum: dec("100"), Found: true},
			want:     []string{"50", "52"},
		},
		{
			name:     "missing baseline leaves first point unchanged",
			readings: []string{"48"},
			baseline: statistics.ZeroBaseline(),
			want:     []string{"48"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points := make([]statistics.DataPoint, len(tt.readings))
			for i, r := range tt.readings {
				points[i] = pt(t0.Add(time.Duration(i)*time.Minute), r)
			}

			got := Normalize(points, tt.baseline)

			require.Len(t, got, len(points))
			for i := range got {
				assertDecimal(t, tt.want[i], got[i].Reading)
				assert.Equal(t, points[i].Timestamp, got[i].Timestamp)
			}
		})
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	points := []statistics.DataPoint{pt(t0, "10"), pt(t0.Add(time.Minute), "5")}

	_ = Normalize(points, statistics.ZeroBaseline())

	assertDecimal(t, "5", points[1].Reading)
}

func TestNormalize_Empty(t *testing.T) {
	assert.Empty(t, Normalize(nil, statistics.ZeroBaseline()))
}
