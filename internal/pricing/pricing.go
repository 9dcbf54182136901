package pricing

import (
	"context"

	"github.com/aevon-lab/meterstats/internal/meters"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a price is configured without a currency.
const DefaultCurrency = "USD"

// Price is a per-unit price sample in a currency.
type Price struct {
	PerUnit  decimal.Decimal
	Currency string
}

// Source samples the unit price for a meter. ok is false when no price is
// configured, which disables the cost companion series for that meter.
type Source interface {
	CurrentPrice(ctx context.Context, meter meters.Meter) (price Price, ok bool, err error)
}

// Static serves one configured price, overridden per meter by a price in the
// meter's definition.
type Static struct {
	perUnit  *decimal.Decimal
	currency string
}

// NewStatic creates a static price source. A nil perUnit means only meter
// overrides produce a price.
func NewStatic(perUnit *decimal.Decimal, currency string) *Static {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Static{perUnit: perUnit, currency: currency}
}

// CurrentPrice returns the meter override if present, else the configured price.
func (s *Static) CurrentPrice(_ context.Context, meter meters.Meter) (Price, bool, error) {
	if meter.Price != nil {
		currency := meter.Currency
		if currency == "" {
			currency = s.currency
		}
		return Price{PerUnit: *meter.Price, Currency: currency}, true, nil
	}
	if s.perUnit == nil {
		return Price{}, false, nil
	}
	return Price{PerUnit: *s.perUnit, Currency: s.currency}, true, nil
}
