package services

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/notafolio/backend/src/model"
	"github.com/username/notafolio/backend/src/models"
	"github.com/username/notafolio/backend/src/parsers"
)

type stubExtractor struct {
	pages []string
	err   error
}

func (s *stubExtractor) ExtractPages(r io.ReaderAt, size int64) ([]string, error) {
	return s.pages, s.err
}

type stubNoteParser struct {
	parsed *parsers.ParsedNote
	err    error
}

func (s *stubNoteParser) Parse(pages []string) (*parsers.ParsedNote, error) {
	return s.parsed, s.err
}

func tradeRow(sequence int, rawName, side string, quantity int, price, value string) models.TradeCandidate {
	return models.TradeCandidate{
		Side:        side,
		MarketType:  "VISTA",
		RawName:     rawName,
		Quantity:    quantity,
		Price:       decimal.RequireFromString(price),
		Value:       decimal.RequireFromString(value),
		DebitCredit: "D",
		Sequence:    sequence,
	}
}

func parsedNote(candidates ...models.TradeCandidate) *parsers.ParsedNote {
	return &parsers.ParsedNote{
		NoteNumber:    "12345678",
		NoteDate:      "2024-03-15",
		Candidates:    candidates,
		ExpectedCount: len(candidates),
	}
}

func newImportService(t *testing.T, parsed *parsers.ParsedNote) (*NoteImportService, *stubLookup) {
	t.Helper()
	db := newTestDB(t)
	lookup := &stubLookup{quotes: map[string]decimal.Decimal{}}
	service := NewNoteImportService(
		db,
		&stubExtractor{pages: []string{"page"}},
		&stubNoteParser{parsed: parsed},
		lookup,
		nil,
		cache.New(time.Minute, time.Minute),
	)
	return service, lookup
}

func runImport(service *NoteImportService, prompt TickerPrompt) (*models.BrokerageNote, error) {
	payload := []byte("%PDF-1.4 test")
	return service.ProcessImport(
		context.Background(), bytes.NewReader(payload), int64(len(payload)),
		"nota.pdf", 1, prompt)
}

func TestProcessImportSuccess(t *testing.T) {
	parsed := parsedNote(
		tradeRow(1, "PETR4 PN N2", models.SideBuy, 100, "28.50", "2850.00"),
		tradeRow(2, "VALE3 ON NM", models.SideSell, 50, "61.20", "3060.00"),
	)
	service, _ := newImportService(t, parsed)

	note, err := runImport(service, nil)
	require.NoError(t, err)

	assert.Equal(t, "12345678", note.NoteNumber)
	assert.Equal(t, models.NoteStatusSuccess, note.Status)
	require.Len(t, note.Operations, 2)
	assert.Equal(t, "PETR4", note.Operations[0].Symbol)
	assert.Equal(t, 100, note.Operations[0].Quantity)
	assert.Equal(t, "VALE3", note.Operations[1].Symbol)
	// Sells carry a negative quantity in the ledger.
	assert.Equal(t, -50, note.Operations[1].Quantity)

	stored, err := model.GetOperationsByNote(service.db, 1, note.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, 1, stored[0].Sequence)
	assert.Equal(t, 2, stored[1].Sequence)
}

func TestProcessImportAllOrNothing(t *testing.T) {
	parsed := parsedNote(
		tradeRow(1, "PETR4 PN N2", models.SideBuy, 100, "28.50", "2850.00"),
		tradeRow(2, "VALE3 ON NM", models.SideBuy, 50, "61.20", "3060.00"),
		tradeRow(3, "MYSTERY COMPANY ON", models.SideBuy, 10, "5.00", "50.00"),
	)
	service, _ := newImportService(t, parsed)

	_, err := runImport(service, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOperationCountMismatch)

	var rejection *ImportRejection
	require.ErrorAs(t, err, &rejection)
	require.Len(t, rejection.Skips, 1)
	assert.Equal(t, 3, rejection.Skips[0].Sequence)
	assert.Equal(t, "MYSTERY COMPANY ON", rejection.Skips[0].RawName)

	// Nothing was committed, not even the two resolvable rows.
	notes, err := service.GetNotes(1)
	require.NoError(t, err)
	assert.Empty(t, notes)

	// But the resolutions that did succeed were learned.
	mappings, err := model.GetAllTickerMappings(service.db, 1)
	require.NoError(t, err)
	assert.Equal(t, "PETR4", mappings["PETR4 PN N2"])
	assert.Equal(t, "VALE3", mappings["VALE3 ON NM"])
}

func TestProcessImportRetryWithAnswersSucceeds(t *testing.T) {
	parsed := parsedNote(
		tradeRow(1, "PETR4 PN N2", models.SideBuy, 100, "28.50", "2850.00"),
		tradeRow(2, "MYSTERY COMPANY ON", models.SideBuy, 10, "5.00", "50.00"),
	)
	service, _ := newImportService(t, parsed)

	_, err := runImport(service, nil)
	require.ErrorIs(t, err, ErrOperationCountMismatch)

	prompt := &countingPrompt{answers: map[string]string{"MYSTERY COMPANY ON": "MSTC3"}}
	note, err := runImport(service, prompt)
	require.NoError(t, err)
	require.Len(t, note.Operations, 2)
	assert.Equal(t, "MSTC3", note.Operations[1].Symbol)
	// Only the previously unresolved name needed an answer.
	assert.Equal(t, 1, prompt.calls)
}

func TestProcessImportDuplicateNote(t *testing.T) {
	parsed := parsedNote(
		tradeRow(1, "PETR4 PN N2", models.SideBuy, 100, "28.50", "2850.00"),
	)
	service, _ := newImportService(t, parsed)

	_, err := runImport(service, nil)
	require.NoError(t, err)

	_, err = runImport(service, nil)
	assert.ErrorIs(t, err, ErrDuplicateNote)

	notes, err := service.GetNotes(1)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}

func TestProcessImportNoTrades(t *testing.T) {
	service, _ := newImportService(t, parsedNote())

	_, err := runImport(service, nil)
	assert.ErrorIs(t, err, ErrNoTradesFound)
}

func TestProcessImportUnreadableDocument(t *testing.T) {
	db := newTestDB(t)
	service := NewNoteImportService(
		db,
		&stubExtractor{err: io.ErrUnexpectedEOF},
		&stubNoteParser{},
		&stubLookup{},
		nil,
		cache.New(time.Minute, time.Minute),
	)

	_, err := runImport(service, nil)
	assert.ErrorIs(t, err, ErrDocumentUnreadable)
}

func TestGetPositionsDerivedAndCached(t *testing.T) {
	parsed := parsedNote(
		tradeRow(1, "PETR4 PN N2", models.SideBuy, 100, "28.50", "2850.00"),
		tradeRow(2, "PETR4 PN N2", models.SideBuy, 100, "30.50", "3050.00"),
	)
	service, lookup := newImportService(t, parsed)
	lookup.quotes["PETR4"] = decimal.RequireFromString("32.00")

	_, err := runImport(service, nil)
	require.NoError(t, err)

	positions, err := service.GetPositions(context.Background(), 1, false)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "PETR4", positions[0].Symbol)
	assert.Equal(t, 200, positions[0].Quantity)
	assert.True(t, positions[0].AveragePrice.Equal(decimal.RequireFromString("29.50")), "avg %s", positions[0].AveragePrice)
	assert.True(t, positions[0].CurrentPrice.IsZero())

	enriched, err := service.GetPositions(context.Background(), 1, true)
	require.NoError(t, err)
	require.Len(t, enriched, 1)
	assert.True(t, enriched[0].CurrentPrice.Equal(decimal.RequireFromString("32.00")))
	assert.True(t, enriched[0].CurrentValue.Equal(decimal.RequireFromString("6400.00")))
	assert.True(t, enriched[0].UnrealizedPnL.Equal(decimal.RequireFromString("500.00")))
}

func TestDeleteAllNotesInvalidatesPositions(t *testing.T) {
	parsed := parsedNote(
		tradeRow(1, "PETR4 PN N2", models.SideBuy, 100, "28.50", "2850.00"),
	)
	service, _ := newImportService(t, parsed)

	_, err := runImport(service, nil)
	require.NoError(t, err)

	positions, err := service.GetPositions(context.Background(), 1, false)
	require.NoError(t, err)
	require.Len(t, positions, 1)

	require.NoError(t, service.DeleteAllNotes(1))

	positions, err = service.GetPositions(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Empty(t, positions)
}
