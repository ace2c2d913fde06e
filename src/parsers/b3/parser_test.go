package b3

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/notafolio/backend/src/logger"
	"github.com/username/notafolio/backend/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func TestParseLineBuyRow(t *testing.T) {
	candidate := ParseLine("1-BOVESPA C VISTA PETROBRAS PN N2 100 28,50 2.850,00 D")
	require.NotNil(t, candidate)

	assert.Equal(t, models.SideBuy, candidate.Side)
	assert.Equal(t, "VISTA", candidate.MarketType)
	assert.Equal(t, "PETROBRAS PN N2", candidate.RawName)
	assert.Equal(t, 100, candidate.Quantity)
	assert.Equal(t, "28.5", candidate.Price.String())
	assert.Equal(t, "2850", candidate.Value.String())
	assert.Equal(t, "D", candidate.DebitCredit)
}

func TestParseLineSellRow(t *testing.T) {
	candidate := ParseLine("1-BOVESPA V VISTA VALE3 ON NM 50 61,20 3.060,00 C")
	require.NotNil(t, candidate)

	assert.Equal(t, models.SideSell, candidate.Side)
	assert.Equal(t, "VALE3 ON NM", candidate.RawName)
	assert.Equal(t, 50, candidate.Quantity)
	assert.Equal(t, "C", candidate.DebitCredit)
}

func TestParseLineFractionalMarket(t *testing.T) {
	candidate := ParseLine("1-BOVESPA C FRACIONARIO ITSA4 PN 10 9,15 91,50 D")
	require.NotNil(t, candidate)

	assert.Equal(t, "FRACIONARIO", candidate.MarketType)
	assert.Equal(t, 10, candidate.Quantity)
}

func TestParseLineObservationMarker(t *testing.T) {
	// The optional "#" observation column between name and quantity must
	// not leak into either field.
	candidate := ParseLine("1-BOVESPA C VISTA BBDC4 PN N1 # 200 13,05 2.610,00 D")
	if candidate == nil {
		candidate = ParseLine("1-BOVESPA C VISTA BBDC4 PN N1 #2 200 13,05 2.610,00 D")
	}
	require.NotNil(t, candidate)
	assert.Equal(t, 200, candidate.Quantity)
	assert.Equal(t, "13.05", candidate.Price.String())
}

func TestParseLineUnknownMarketFallsBack(t *testing.T) {
	candidate := ParseLine("1-BOVESPA V TERMO VALE3 ON NM 30 60,00 1.800,00 C")
	require.NotNil(t, candidate)
	assert.Equal(t, "TERMO", candidate.MarketType)
	assert.Equal(t, "VALE3 ON NM", candidate.RawName)
}

func TestParseLineNonTradeLines(t *testing.T) {
	for _, line := range []string{
		"",
		"NOTA DE CORRETAGEM",
		"Data pregão 15/03/2024",
		"Taxa de liquidação 1,23 D",
		"Resumo dos Negócios",
	} {
		assert.Nil(t, ParseLine(line), "line %q", line)
	}
}

func TestParseLineZeroValuesRejected(t *testing.T) {
	assert.Nil(t, ParseLine("1-BOVESPA C VISTA PETROBRAS PN 0 28,50 2.850,00 D"))
	assert.Nil(t, ParseLine("1-BOVESPA C VISTA PETROBRAS PN 100 0,00 2.850,00 D"))
}

func TestCountTradeRowsIndependentOfExtraction(t *testing.T) {
	lines := []string{
		"NOTA DE CORRETAGEM",
		"1-BOVESPA C VISTA PETROBRAS PN N2 100 28,50 2.850,00 D",
		// Structurally a trade row, but the zero quantity makes field
		// extraction reject it. The count must still include it.
		"1-BOVESPA C VISTA PETROBRAS PN 0 28,50 2.850,00 D",
		"Líquido para 18/03/2024 5.910,00 D",
	}

	assert.Equal(t, 2, CountTradeRows(lines))

	extracted := 0
	for _, line := range lines {
		if ParseLine(line) != nil {
			extracted++
		}
	}
	assert.Equal(t, 1, extracted)
}

const sampleNoteFirstPage = `CORRETORA EXEMPLO S.A.
NOTA DE NEGOCIAÇÃO
Nr. nota 12345678
Data pregão 15/03/2024
Negócios realizados
1-BOVESPA C VISTA PETROBRAS PN N2 100 28,50 2.850,00 D
1-BOVESPA V VISTA VALE3 ON NM 50 61,20 3.060,00 C
1-BOVESPA C FRACIONARIO ITSA4 PN 10 9,15 91,50 D`

const sampleNoteLastPage = `Resumo financeiro
Taxa de liquidação 0,82 D
Emolumentos 0,17 D
Total corretagem 15,00 D
Impostos 1,43 D
I.R.R.F. s/ operações, base R$ 3.060,00 0,15 D
Líquido para 18/03/2024 101,07 C`

func TestParseFullNote(t *testing.T) {
	parser := NewNotaParser()
	parsed, err := parser.Parse([]string{sampleNoteFirstPage, sampleNoteLastPage})
	require.NoError(t, err)

	assert.Equal(t, "12345678", parsed.NoteNumber)
	assert.Equal(t, "2024-03-15", parsed.NoteDate)
	require.Len(t, parsed.Candidates, 3)
	assert.Equal(t, 3, parsed.ExpectedCount)

	// Candidates keep document order via their sequence numbers.
	for i, candidate := range parsed.Candidates {
		assert.Equal(t, i+1, candidate.Sequence)
	}
	assert.Equal(t, "PETROBRAS PN N2", parsed.Candidates[0].RawName)
	assert.Equal(t, "VALE3 ON NM", parsed.Candidates[1].RawName)
	assert.Equal(t, "ITSA4 PN", parsed.Candidates[2].RawName)

	assert.Equal(t, "0.82", parsed.Summary.SettlementFee.String())
	assert.Equal(t, "0.17", parsed.Summary.ExchangeFees.String())
	assert.Equal(t, "15", parsed.Summary.Brokerage.String())
	assert.Equal(t, "1.43", parsed.Summary.Taxes.String())
	assert.Equal(t, "0.15", parsed.Summary.IRRF.String())
	assert.Equal(t, "101.07", parsed.Summary.NetAmount.String())
	assert.Equal(t, "C", parsed.Summary.NetDebitCredit)
	assert.Equal(t, "2024-03-18", parsed.Summary.SettlementDate)
}

func TestParseNoteNumberFallback(t *testing.T) {
	// Some extractions lose the "Nr. nota" label; a standalone digit run
	// near the top of the document is used instead.
	text := strings.Join([]string{
		"CORRETORA EXEMPLO S.A.",
		"87654321",
		"Data pregão 15/03/2024",
		"1-BOVESPA C VISTA PETROBRAS PN N2 100 28,50 2.850,00 D",
	}, "\n")

	parser := NewNotaParser()
	parsed, err := parser.Parse([]string{text})
	require.NoError(t, err)
	assert.Equal(t, "87654321", parsed.NoteNumber)
}

func TestParseNoteNumberFallbackSkipsDates(t *testing.T) {
	// An 8-digit run that reads as ddmmyyyy must not be taken for a note
	// number.
	text := strings.Join([]string{
		"CORRETORA EXEMPLO S.A.",
		"15032024",
		"99887766",
		"Data pregão 15/03/2024",
		"1-BOVESPA C VISTA PETROBRAS PN N2 100 28,50 2.850,00 D",
	}, "\n")

	parser := NewNotaParser()
	parsed, err := parser.Parse([]string{text})
	require.NoError(t, err)
	assert.Equal(t, "99887766", parsed.NoteNumber)
}

func TestParseMissingHeaderFails(t *testing.T) {
	parser := NewNotaParser()

	_, err := parser.Parse([]string{"1-BOVESPA C VISTA PETROBRAS PN N2 100 28,50 2.850,00 D"})
	require.Error(t, err)

	_, err = parser.Parse(nil)
	require.Error(t, err)
}

func TestParseSummaryMissingLabelsAreZero(t *testing.T) {
	text := strings.Join([]string{
		"Nr. nota 12345678",
		"Data pregão 15/03/2024",
		"1-BOVESPA C VISTA PETROBRAS PN N2 100 28,50 2.850,00 D",
	}, "\n")

	parser := NewNotaParser()
	parsed, err := parser.Parse([]string{text})
	require.NoError(t, err)

	assert.True(t, parsed.Summary.SettlementFee.IsZero())
	assert.True(t, parsed.Summary.NetAmount.IsZero())
	assert.Empty(t, parsed.Summary.SettlementDate)
}
