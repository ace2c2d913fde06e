package services

import (
	"context"
	"io"

	"github.com/shopspring/decimal"
	"github.com/username/notafolio/backend/src/models"
)

// TickerLookupService is the remote ticker discovery collaborator.
// SearchSymbol returns an empty string (not an error) when the service
// has no answer for the name.
type TickerLookupService interface {
	SearchSymbol(ctx context.Context, rawName string) (string, error)
	GetQuote(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// TickerPrompt is the interactive disambiguation collaborator: a
// blocking request/response abstraction the pipeline waits on before
// resuming. Cancellation is signalled with ErrPromptCancelled, not a
// separate mechanism.
type TickerPrompt interface {
	Prompt(ctx context.Context, rawName string, candidate models.TradeCandidate) (string, error)
}

// PromptFunc adapts a function to the TickerPrompt interface.
type PromptFunc func(ctx context.Context, rawName string, candidate models.TradeCandidate) (string, error)

func (f PromptFunc) Prompt(ctx context.Context, rawName string, candidate models.TradeCandidate) (string, error) {
	return f(ctx, rawName, candidate)
}

// ImportService is the core import and reporting surface.
type ImportService interface {
	// ProcessImport runs the whole pipeline for one document: extraction,
	// parsing, sequential ticker resolution, all-or-nothing validation and
	// atomic persistence. On rejection the returned error is (or wraps) an
	// *ImportRejection.
	ProcessImport(ctx context.Context, file io.ReaderAt, size int64, fileName string, userID int64, prompt TickerPrompt) (*models.BrokerageNote, error)

	GetNotes(userID int64) ([]models.BrokerageNote, error)
	GetOperations(userID, noteID int64) ([]models.Operation, error)
	GetPositions(ctx context.Context, userID int64, withQuotes bool) ([]models.Position, error)
	DeleteAllNotes(userID int64) error
	InvalidateUserCache(userID int64)
}
