package b3

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/notafolio/backend/src/models"
	"github.com/username/notafolio/backend/src/utils"
)

var (
	noteDateRe   = regexp.MustCompile(`(?i)Data\s+preg[ãa]o[\s.:]*(\d{2}/\d{2}/\d{4})`)
	noteNumberRe = regexp.MustCompile(`(?i)N[rº°]?\.?\s*(?:da\s+)?nota[\s.:]*(\d{6,})`)

	// Fallback for notes whose label column was lost in text extraction:
	// a standalone 8-9 digit token near the top of the document.
	bareNumberRe = regexp.MustCompile(`^\d{8,9}$`)
)

// headerScanLines bounds the note-number fallback scan. The number is
// always printed in the document header.
const headerScanLines = 10

func extractNoteDate(fullText string) (string, error) {
	matches := noteDateRe.FindStringSubmatch(fullText)
	if matches == nil {
		return "", fmt.Errorf("no trade date label found")
	}
	return parseNoteDate(matches[1])
}

func extractNoteNumber(fullText string, lines []string) (string, error) {
	if matches := noteNumberRe.FindStringSubmatch(fullText); matches != nil {
		return matches[1], nil
	}

	limit := utils.MinInt(headerScanLines, len(lines))
	for _, line := range lines[:limit] {
		for _, token := range strings.Fields(line) {
			if bareNumberRe.MatchString(token) && !isDateToken(token) {
				return token, nil
			}
		}
	}
	return "", fmt.Errorf("no note number label or standalone digit token found")
}

// isDateToken filters out ddmmyyyy digit runs that would otherwise be
// mistaken for a note number.
func isDateToken(token string) bool {
	if len(token) != 8 {
		return false
	}
	_, err := time.Parse("02012006", token)
	return err == nil
}

// Summary labels, each with accent-tolerant variants. The printed value
// may carry a trailing debit/credit letter which is stripped before
// locale parsing.
var (
	settlementFeeRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Taxa\s+de\s+liquida[çc][ãa]o` + amountSuffix),
	}
	exchangeFeesRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Emolumentos` + amountSuffix),
	}
	brokerageRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Total\s+corretagem` + amountSuffix),
		regexp.MustCompile(`(?i)Corretagem` + amountSuffix),
	}
	taxesRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Impostos` + amountSuffix),
	}
	// The IRRF line also prints the tax base, so the amount is anchored to
	// the end of the line rather than taken after the label.
	irrfRes = []*regexp.Regexp{
		regexp.MustCompile(`(?im)I\.?R\.?R\.?F\.?[^\n]*?[\s.:]R?\$?\s*([\d.,]+)\s*([DC])?\s*$`),
	}
	netAmountRe = regexp.MustCompile(`(?i)L[íi]quido\s+para\s*(\d{2}/\d{2}/\d{4})?` + amountSuffix)
)

const amountSuffix = `[\s.:]*R?\$?\s*([\d.,]+)\s*([DC])?`

// extractSummary performs label-anchored extraction over the last page's
// text. Missing labels leave their fields at zero; the summary is
// advisory data and its absence is never an error.
func extractSummary(lastPage string) models.FinancialSummary {
	var summary models.FinancialSummary

	summary.SettlementFee, _ = matchAmount(lastPage, settlementFeeRes)
	summary.ExchangeFees, _ = matchAmount(lastPage, exchangeFeesRes)
	summary.Brokerage, _ = matchAmount(lastPage, brokerageRes)
	summary.Taxes, _ = matchAmount(lastPage, taxesRes)
	summary.IRRF, _ = matchAmount(lastPage, irrfRes)

	if matches := netAmountRe.FindStringSubmatch(lastPage); matches != nil {
		if amount, err := parseMoney(matches[2]); err == nil {
			summary.NetAmount = amount
			summary.NetDebitCredit = matches[3]
		}
		if matches[1] != "" {
			if iso, err := parseNoteDate(matches[1]); err == nil {
				summary.SettlementDate = iso
			}
		}
	}
	return summary
}

func matchAmount(text string, patterns []*regexp.Regexp) (decimal.Decimal, string) {
	for _, re := range patterns {
		matches := re.FindStringSubmatch(text)
		if matches == nil {
			continue
		}
		amount, err := parseMoney(matches[1])
		if err != nil {
			continue
		}
		return amount, matches[2]
	}
	return decimal.Zero, ""
}
