package statistics

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	statisticPrefix = "sensor.water_meter_"
	costSuffix      = "_cost"
	meterName       = "Water Meter"
)

// ErrInvalidKey is returned when a statistic id is not a valid sink identifier.
var ErrInvalidKey = errors.New("invalid statistic id")

var validKey = regexp.MustCompile(`^[a-z0-9_]+\.[a-z0-9_]+$`)

// StatisticKey identifies one meter's long-term statistics series in the sink.
// It is derived once from the meter id and must stay stable for the life of the
// meter: changing it orphans every row written under the old key.
type StatisticKey string

func (k StatisticKey) String() string { return string(k) }

// Validate reports whether k is usable as a sink statistic id.
func (k StatisticKey) Validate() error {
	if !validKey.MatchString(string(k)) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, string(k))
	}
	return nil
}

// IsCost reports whether k is a companion cost series.
func (k StatisticKey) IsCost() bool {
	return strings.HasSuffix(string(k), costSuffix)
}

// NormalizeID lowercases id and replaces every rune outside [a-z0-9_] with a
// single underscore, so "12-34-56@78" becomes "12_34_56_78".
func NormalizeID(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range strings.ToLower(id) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// KeyForMeter returns the consumption statistic id for a meter.
func KeyForMeter(meterID string) StatisticKey {
	return StatisticKey(statisticPrefix + NormalizeID(meterID))
}

// CostKey returns the companion cost statistic id for a consumption key.
func CostKey(key StatisticKey) StatisticKey {
	return StatisticKey(string(key) + costSuffix)
}

// StatisticName is the human-readable name stored in sink metadata.
func StatisticName(meterID string) string {
	return meterName + " " + NormalizeID(meterID)
}

// CostStatisticName is the human-readable name of the companion cost series.
func CostStatisticName(meterID string) string {
	return StatisticName(meterID) + " Cost"
}
