package eyeonwater

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// extractDecimal converts a decoded JSON reading to an exact decimal.
// The client decodes with UseNumber, so json.Number is the common path and
// never goes through float64.
func extractDecimal(v interface{}) (decimal.Decimal, error) {
	switch val := v.(type) {
	case json.Number:
		return decimal.NewFromString(val.String())
	case string:
		return decimal.NewFromString(val)
	case float64:
		return decimal.NewFromFloat(val), nil
	case int64:
		return decimal.NewFromInt(val), nil
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case nil:
		return decimal.Zero, fmt.Errorf("reading is null")
	}
	return decimal.Zero, fmt.Errorf("unsupported reading type %T", v)
}
