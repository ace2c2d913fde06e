package b3

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/username/notafolio/backend/src/logger"
	"github.com/username/notafolio/backend/src/models"
	"github.com/username/notafolio/backend/src/parsers"
)

// rowPattern pairs a compiled row regex with the meaning of its capture
// groups. nameExtra is 0 when the pattern captures the instrument field
// in one piece; otherwise the two captures are concatenated.
type rowPattern struct {
	re                                  *regexp.Regexp
	side, market, name, nameExtra       int
	quantity, price, value, debitCredit int
}

// Row patterns are tried top to bottom, most specific first. The first
// match wins; there is no combination logic across patterns.
var rowPatterns = []rowPattern{
	// Primary: instrument name and trailing classification code as one field,
	// optional observation marker before the quantity column.
	{
		re: regexp.MustCompile(`^\s*1-BOVESPA\s+([CV])\s+(VISTA|FRACIONARIO|OPCAO DE COMPRA|OPCAO DE VENDA)\s+(.+?)\s+(?:#\d*\s+)?([\d.]+)\s+([\d.,]+)\s+([\d.,]+)\s+([DC])\s*$`),
		side: 1, market: 2, name: 3, quantity: 4, price: 5, value: 6, debitCredit: 7,
	},
	// Fallback: name and classification code split by a column gap,
	// captured separately and concatenated.
	{
		re: regexp.MustCompile(`^\s*1-BOVESPA\s+([CV])\s+(VISTA|FRACIONARIO)\s+(\S.*?\S)\s{2,}((?:ON|PN|PNA|PNB|UNT|CI|BDR|DR\d)(?:\s+[A-Z0-9]{1,3})*)\s+([\d.]+)\s+([\d.,]+)\s+([\d.,]+)\s+([DC])\s*$`),
		side: 1, market: 2, name: 3, nameExtra: 4, quantity: 5, price: 6, value: 7, debitCredit: 8,
	},
	// Last resort: tolerate an unknown market-type column and irregular
	// spacing, as produced by some text extractors.
	{
		re: regexp.MustCompile(`^\s*1-BOVESPA\s+([CV])\s+(\S+)\s+(.+?)\s+([\d.]+)\s+([\d.,]+)\s+([\d.,]+)\s+([DC])\s*$`),
		side: 1, market: 2, name: 3, quantity: 4, price: 5, value: 6, debitCredit: 7,
	},
}

// rowShapeRe is the independent structural detector: it only decides
// whether a line LOOKS like a trade row, without extracting fields.
// Its count is the ground truth the import validator checks against.
var rowShapeRe = regexp.MustCompile(`^\s*1-BOVESPA\s+[CV]\s+.*\d.*\s[DC]\s*$`)

// NotaParser extracts trade candidates and header metadata from the
// plain text of a B3 brokerage settlement note.
type NotaParser struct{}

func NewNotaParser() *NotaParser {
	return &NotaParser{}
}

// Parse scans the document pages: header fields once over the full text,
// trade rows line by line in document order, and the financial summary
// from the last page only.
func (p *NotaParser) Parse(pages []string) (*parsers.ParsedNote, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("document has no pages")
	}
	fullText := strings.Join(pages, "\n")
	lines := strings.Split(fullText, "\n")

	noteDate, err := extractNoteDate(fullText)
	if err != nil {
		return nil, fmt.Errorf("could not locate trade date: %w", err)
	}
	noteNumber, err := extractNoteNumber(fullText, lines)
	if err != nil {
		return nil, fmt.Errorf("could not locate note number: %w", err)
	}

	parsed := &parsers.ParsedNote{
		NoteNumber: noteNumber,
		NoteDate:   noteDate,
		Summary:    extractSummary(pages[len(pages)-1]),
	}

	sequence := 0
	for _, line := range lines {
		candidate := ParseLine(line)
		if candidate == nil {
			continue
		}
		sequence++
		candidate.Sequence = sequence
		parsed.Candidates = append(parsed.Candidates, *candidate)
	}
	parsed.ExpectedCount = CountTradeRows(lines)

	logger.L.Debug("Parsed brokerage note text",
		"noteNumber", noteNumber, "noteDate", noteDate,
		"candidates", len(parsed.Candidates), "expectedCount", parsed.ExpectedCount)
	return parsed, nil
}

// ParseLine matches one text line against the ordered row patterns and
// returns the recovered trade candidate, or nil when the line is not a
// well-formed trade row. Most lines in a note are not trade rows, so a
// nil result is the normal case, not an error.
func ParseLine(line string) *models.TradeCandidate {
	for _, pattern := range rowPatterns {
		matches := pattern.re.FindStringSubmatch(line)
		if matches == nil {
			continue
		}

		quantity, err := parseQuantity(matches[pattern.quantity])
		if err != nil {
			continue
		}
		price, err := parseMoney(matches[pattern.price])
		if err != nil {
			continue
		}
		value, err := parseMoney(matches[pattern.value])
		if err != nil {
			continue
		}
		// A zero in any numeric column signals a malformed row, not a trade.
		if quantity == 0 || price.IsZero() || value.IsZero() {
			return nil
		}

		rawName := strings.TrimSpace(matches[pattern.name])
		if pattern.nameExtra != 0 {
			rawName = rawName + " " + strings.TrimSpace(matches[pattern.nameExtra])
		}

		side := models.SideBuy
		if matches[pattern.side] == "V" {
			side = models.SideSell
		}

		return &models.TradeCandidate{
			Side:        side,
			MarketType:  strings.TrimSpace(matches[pattern.market]),
			RawName:     rawName,
			Quantity:    quantity,
			Price:       price,
			Value:       value,
			DebitCredit: matches[pattern.debitCredit],
		}
	}
	return nil
}

// CountTradeRows counts the lines that structurally look like trade
// rows. It deliberately does not share logic with the row patterns so
// that a pattern regression cannot mask rows from the count check.
func CountTradeRows(lines []string) int {
	count := 0
	for _, line := range lines {
		if rowShapeRe.MatchString(line) {
			count++
		}
	}
	return count
}
