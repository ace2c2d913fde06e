package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Monetary columns are stored as decimal strings so values round-trip
// without binary floating point drift.
func parseStoredDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid stored decimal %q: %w", s, err)
	}
	return d, nil
}
