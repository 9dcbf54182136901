package statistics

import (
	"errors"
	"fmt"
	"regexp"
)

// SourceRecorder is the metadata source the sink expects for imported statistics.
const SourceRecorder = "recorder"

// ErrInvalidMetadata marks metadata the sink would accept without error and then
// silently discard. It must be caught before any write.
var ErrInvalidMetadata = errors.New("invalid statistic metadata")

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

var volumeUnits = map[string]bool{
	UnitGallons:     true,
	UnitCubicMeters: true,
	UnitCubicFeet:   true,
	UnitLiters:      true,
}

// Metadata describes a statistic series to the sink.
type Metadata struct {
	StatisticID StatisticKey
	Name        string
	Source      string
	HasSum      bool
	HasMean     bool
	Unit        string // plain display unit string, never a wrapped enum value
	UnitClass   string // "volume" for consumption, empty for currency series
}

// Validate checks the unit representation and sum flag before a write.
func (m Metadata) Validate() error {
	if err := m.StatisticID.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if !m.HasSum {
		return fmt.Errorf("%w: %s must have has_sum set", ErrInvalidMetadata, m.StatisticID)
	}
	switch m.UnitClass {
	case UnitClassVolume:
		if !volumeUnits[m.Unit] {
			return fmt.Errorf("%w: unit %q is not a volume display unit", ErrInvalidMetadata, m.Unit)
		}
	case "":
		if !currencyCode.MatchString(m.Unit) {
			return fmt.Errorf("%w: unit %q is not a currency code", ErrInvalidMetadata, m.Unit)
		}
	default:
		return fmt.Errorf("%w: unsupported unit class %q", ErrInvalidMetadata, m.UnitClass)
	}
	return nil
}

// ConsumptionMetadata builds the metadata of a meter's consumption series.
func ConsumptionMetadata(meterID, unitSystem string) Metadata {
	return Metadata{
		StatisticID: KeyForMeter(meterID),
		Name:        StatisticName(meterID),
		Source:      SourceRecorder,
		HasSum:      true,
		Unit:        NativeUnit(unitSystem),
		UnitClass:   UnitClassVolume,
	}
}

// CostMetadata builds the metadata of a meter's companion cost series.
func CostMetadata(meterID, currency string) Metadata {
	return Metadata{
		StatisticID: CostKey(KeyForMeter(meterID)),
		Name:        CostStatisticName(meterID),
		Source:      SourceRecorder,
		HasSum:      true,
		Unit:        currency,
	}
}
