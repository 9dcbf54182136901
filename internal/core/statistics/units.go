package statistics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Unit systems a meter can be registered under.
const (
	UnitSystemImperial = "imperial"
	UnitSystemMetric   = "metric"
)

// Display units written to sink metadata. These are plain strings: the sink
// silently drops writes whose unit is anything other than a plain string value.
const (
	UnitGallons     = "gal"
	UnitCubicMeters = "m³"
	UnitCubicFeet   = "ft³"
	UnitLiters      = "L"

	UnitClassVolume = "volume"
)

// ErrUnrecognizedUnit is returned for a billing unit missing from the conversion
// table. Converting with a guessed factor would corrupt every downstream sum.
var ErrUnrecognizedUnit = errors.New("unrecognized billing unit")

// Conversion factors from billing units to gallons.
var imperialFactors = map[string]decimal.Decimal{
	"GAL":        decimal.NewFromInt(1),
	"10 GAL":     decimal.NewFromInt(10),
	"100 GAL":    decimal.NewFromInt(100),
	"KGAL":       decimal.NewFromInt(1000),
	"CCF":        decimal.RequireFromString("748.052"),
	"CF":         decimal.RequireFromString("7.48052"),
	"CUBIC_FEET": decimal.RequireFromString("7.48052"),
}

// Conversion factors from billing units to cubic meters.
var metricFactors = map[string]decimal.Decimal{
	"CM":          decimal.NewFromInt(1),
	"CUBIC_METER": decimal.NewFromInt(1),
}

// ValidUnitSystem reports whether system is a registered unit system.
func ValidUnitSystem(system string) bool {
	return system == UnitSystemImperial || system == UnitSystemMetric
}

// NativeUnit returns the display unit readings are converted into.
func NativeUnit(system string) string {
	if system == UnitSystemMetric {
		return UnitCubicMeters
	}
	return UnitGallons
}

// ConvertReading converts amount reported in billingUnit into the native unit of system.
// Billing units are matched case-insensitively.
func ConvertReading(system, billingUnit string, amount decimal.Decimal) (decimal.Decimal, error) {
	factors := imperialFactors
	if system == UnitSystemMetric {
		factors = metricFactors
	}
	factor, ok := factors[strings.ToUpper(strings.TrimSpace(billingUnit))]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q (unit system %s)", ErrUnrecognizedUnit, billingUnit, system)
	}
	return amount.Mul(factor), nil
}

// ConvertPoints converts every point into the native unit of system. It fails on
// the first unrecognized unit and returns no partial result.
func ConvertPoints(system string, points []DataPoint) ([]DataPoint, error) {
	native := NativeUnit(system)
	out := make([]DataPoint, len(points))
	for i, p := range points {
		reading, err := ConvertReading(system, p.Unit, p.Reading)
		if err != nil {
			return nil, fmt.Errorf("point %d at %s: %w", i, p.Timestamp.UTC().Format("2006-01-02T15:04:05Z"), err)
		}
		out[i] = DataPoint{Timestamp: p.Timestamp, Reading: reading, Unit: native}
	}
	return out, nil
}
