package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aevon-lab/meterstats/internal/meters"
	"github.com/aevon-lab/meterstats/internal/pricing"
	"github.com/shopspring/decimal"
)

// PriceTable implements pricing.Source over the meter_prices table. A price
// in the meter definition wins over the table.
type PriceTable struct {
	db  *sql.DB
	now func() time.Time
}

// NewPriceTable creates a price source sharing the given connection.
func NewPriceTable(db *sql.DB) *PriceTable {
	return &PriceTable{db: db, now: time.Now}
}

// CurrentPrice returns the newest price in effect now, or ok=false when the meter has none.
func (p *PriceTable) CurrentPrice(ctx context.Context, meter meters.Meter) (pricing.Price, bool, error) {
	if meter.Price != nil {
		currency := meter.Currency
		if currency == "" {
			currency = pricing.DefaultCurrency
		}
		return pricing.Price{PerUnit: *meter.Price, Currency: currency}, true, nil
	}

	var perUnitText, currency string
	err := p.db.QueryRowContext(ctx, queryCurrentPrice, meter.ID, p.now().UTC()).Scan(&perUnitText, &currency)
	if errors.Is(err, sql.ErrNoRows) {
		return pricing.Price{}, false, nil
	}
	if err != nil {
		return pricing.Price{}, false, fmt.Errorf("query price for meter %s: %w", meter.ID, err)
	}

	perUnit, err := decimal.NewFromString(perUnitText)
	if err != nil {
		return pricing.Price{}, false, fmt.Errorf("parse price %q for meter %s: %w", perUnitText, meter.ID, err)
	}
	if currency == "" {
		currency = pricing.DefaultCurrency
	}
	return pricing.Price{PerUnit: perUnit, Currency: currency}, true, nil
}
