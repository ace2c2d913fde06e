package b3

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Brokerage notes print numbers in Brazilian locale: period as thousands
// separator, comma as decimal separator, optional leading currency marker.

func parseMoney(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimPrefix(cleaned, "R$")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid monetary value %q: %w", s, err)
	}
	return d, nil
}

func parseQuantity(s string) (int, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ".", "")
	q, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return q, nil
}

// parseNoteDate converts the printed dd/mm/yyyy form to ISO so that
// string comparison of stored dates is chronological.
func parseNoteDate(s string) (string, error) {
	t, err := time.Parse("02/01/2006", strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t.Format("2006-01-02"), nil
}
