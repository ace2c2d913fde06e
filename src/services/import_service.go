package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/username/notafolio/backend/src/logger"
	"github.com/username/notafolio/backend/src/model"
	"github.com/username/notafolio/backend/src/models"
	"github.com/username/notafolio/backend/src/parsers"
	"github.com/username/notafolio/backend/src/processors"
)

// NoteImportService runs the full import pipeline and serves the derived
// reports. Position reports are cached per user and invalidated whenever
// the user's operation set changes.
type NoteImportService struct {
	db            *sql.DB
	extractor     parsers.TextExtractor
	parser        parsers.NoteParser
	lookup        TickerLookupService
	email         EmailService
	processor     *processors.PositionProcessor
	positionCache *cache.Cache
}

func NewNoteImportService(
	db *sql.DB,
	extractor parsers.TextExtractor,
	parser parsers.NoteParser,
	lookup TickerLookupService,
	email EmailService,
	positionCache *cache.Cache,
) *NoteImportService {
	return &NoteImportService{
		db:            db,
		extractor:     extractor,
		parser:        parser,
		lookup:        lookup,
		email:         email,
		processor:     processors.NewPositionProcessor(),
		positionCache: positionCache,
	}
}

// ProcessImport executes the pipeline: text extraction, note parsing,
// duplicate detection, sequential ticker resolution and the count check,
// then atomic persistence. The batch is all-or-nothing: any rejection
// leaves the ledger untouched. Ticker mappings learned along the way are
// kept even when the batch is rejected, so a retry needs fewer prompts.
func (s *NoteImportService) ProcessImport(ctx context.Context, file io.ReaderAt, size int64, fileName string, userID int64, prompt TickerPrompt) (*models.BrokerageNote, error) {
	pages, err := s.extractor.ExtractPages(file, size)
	if err != nil {
		return nil, &ImportRejection{
			Kind:    ErrDocumentUnreadable,
			Message: fmt.Sprintf("could not extract text from %s: %v", fileName, err),
		}
	}

	parsed, err := s.parser.Parse(pages)
	if err != nil {
		return nil, &ImportRejection{
			Kind:    ErrDocumentUnreadable,
			Message: fmt.Sprintf("could not parse %s: %v", fileName, err),
		}
	}

	exists, err := model.NoteExists(s.db, userID, parsed.NoteNumber, parsed.NoteDate)
	if err != nil {
		return nil, fmt.Errorf("error checking for duplicate note: %w", err)
	}
	if exists {
		return nil, &ImportRejection{
			Kind:    ErrDuplicateNote,
			Message: fmt.Sprintf("note %s dated %s was already imported", parsed.NoteNumber, parsed.NoteDate),
		}
	}

	resolver := NewTickerResolver(s.db, userID, s.lookup, prompt)
	operations := make([]models.Operation, 0, len(parsed.Candidates))
	var skips []SkipReason

	// Candidates are resolved strictly in document order so that prompts
	// appear in the order the rows are printed on the note.
	for _, candidate := range parsed.Candidates {
		symbol, err := resolver.Resolve(ctx, candidate)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			reason := "ticker resolution failed"
			if errors.Is(err, ErrPromptCancelled) {
				reason = "ticker prompt cancelled"
			}
			skips = append(skips, SkipReason{
				Sequence: candidate.Sequence,
				RawName:  candidate.RawName,
				Reason:   reason,
			})
			continue
		}

		quantity := candidate.Quantity
		if candidate.Side == models.SideSell {
			quantity = -quantity
		}
		operations = append(operations, models.Operation{
			Symbol:      symbol,
			Side:        candidate.Side,
			MarketType:  candidate.MarketType,
			Quantity:    quantity,
			Price:       candidate.Price,
			Value:       candidate.Value,
			DebitCredit: candidate.DebitCredit,
			Sequence:    candidate.Sequence,
		})
	}

	if len(operations) == 0 {
		return nil, &ImportRejection{
			Kind:    ErrNoTradesFound,
			Message: fmt.Sprintf("no valid trades found in %s", fileName),
			Skips:   skips,
		}
	}
	if len(operations) != parsed.ExpectedCount {
		return nil, &ImportRejection{
			Kind: ErrOperationCountMismatch,
			Message: fmt.Sprintf("extracted %d operations but the document contains %d trade rows",
				len(operations), parsed.ExpectedCount),
			Skips: skips,
		}
	}

	note := &models.BrokerageNote{
		UserID:     userID,
		FileName:   fileName,
		NoteNumber: parsed.NoteNumber,
		NoteDate:   parsed.NoteDate,
		Status:     models.NoteStatusSuccess,
		Summary:    parsed.Summary,
		Operations: operations,
	}
	if err := model.CreateNoteWithOperations(s.db, note); err != nil {
		return nil, fmt.Errorf("error persisting note %s: %w", parsed.NoteNumber, err)
	}

	s.InvalidateUserCache(userID)
	s.notifyImport(userID, note)

	logger.L.Info("Brokerage note imported",
		"userID", userID, "noteNumber", note.NoteNumber, "noteDate", note.NoteDate,
		"operations", len(note.Operations))
	return note, nil
}

// notifyImport sends the best-effort import notification. Email failures
// never affect the import result.
func (s *NoteImportService) notifyImport(userID int64, note *models.BrokerageNote) {
	if s.email == nil {
		return
	}
	user, err := model.GetUserByID(s.db, userID)
	if err != nil || user.Email == "" {
		return
	}
	if err := s.email.SendImportResultEmail(user.Email, user.Username, note); err != nil {
		logger.L.Warn("Could not send import notification email", "userID", userID, "error", err)
	}
}

func (s *NoteImportService) GetNotes(userID int64) ([]models.BrokerageNote, error) {
	return model.ListNotes(s.db, userID)
}

func (s *NoteImportService) GetOperations(userID, noteID int64) ([]models.Operation, error) {
	return model.GetOperationsByNote(s.db, userID, noteID)
}

// GetPositions derives the user's positions from the full operation
// stream, serving from cache when possible. With withQuotes set, each
// open position is enriched with the latest market price; quote failures
// degrade to the bare position.
func (s *NoteImportService) GetPositions(ctx context.Context, userID int64, withQuotes bool) ([]models.Position, error) {
	positions, found := s.cachedPositions(userID)
	if !found {
		operations, err := model.GetAllOperations(s.db, userID)
		if err != nil {
			return nil, fmt.Errorf("error loading operations for positions: %w", err)
		}
		positions = s.processor.Process(operations)
		s.positionCache.Set(positionCacheKey(userID), positions, cache.DefaultExpiration)
	}

	if !withQuotes || s.lookup == nil {
		return positions, nil
	}

	enriched := make([]models.Position, len(positions))
	copy(enriched, positions)
	for i := range enriched {
		if enriched[i].Quantity <= 0 {
			continue
		}
		price, err := s.lookup.GetQuote(ctx, enriched[i].Symbol)
		if err != nil {
			logger.L.Debug("Quote unavailable for position", "symbol", enriched[i].Symbol, "error", err)
			continue
		}
		quantityDec := decimal.NewFromInt(int64(enriched[i].Quantity))
		enriched[i].CurrentPrice = price
		enriched[i].CurrentValue = price.Mul(quantityDec)
		enriched[i].UnrealizedPnL = enriched[i].CurrentValue.Sub(enriched[i].InvestedValue)
	}
	return enriched, nil
}

func (s *NoteImportService) DeleteAllNotes(userID int64) error {
	if err := model.DeleteAllNotes(s.db, userID); err != nil {
		return err
	}
	s.InvalidateUserCache(userID)
	return nil
}

func (s *NoteImportService) InvalidateUserCache(userID int64) {
	s.positionCache.Delete(positionCacheKey(userID))
}

func (s *NoteImportService) cachedPositions(userID int64) ([]models.Position, bool) {
	cached, found := s.positionCache.Get(positionCacheKey(userID))
	if !found {
		return nil, false
	}
	positions, ok := cached.([]models.Position)
	return positions, ok
}

func positionCacheKey(userID int64) string {
	return fmt.Sprintf("positions_%d", userID)
}
