package parsers

import (
	"io"

	"github.com/username/notafolio/backend/src/models"
)

// ParsedNote is the raw extraction result for one document, before any
// instrument name has been resolved to a market symbol.
type ParsedNote struct {
	NoteNumber    string
	NoteDate      string // ISO format (2006-01-02)
	Candidates    []models.TradeCandidate
	ExpectedCount int // structural trade-row count, ground truth for validation
	Summary       models.FinancialSummary
}

// NoteParser turns decoded page text into a ParsedNote.
type NoteParser interface {
	Parse(pages []string) (*ParsedNote, error)
}

// TextExtractor decodes a document into per-page plain text.
type TextExtractor interface {
	ExtractPages(r io.ReaderAt, size int64) ([]string, error)
}
