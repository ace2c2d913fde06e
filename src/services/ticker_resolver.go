package services

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"github.com/username/notafolio/backend/src/logger"
	"github.com/username/notafolio/backend/src/model"
	"github.com/username/notafolio/backend/src/models"
)

// tickerPatternRe recognizes a B3 ticker embedded in an instrument name:
// four letters followed by one or two digits, delimited by non-alphanumerics.
var tickerPatternRe = regexp.MustCompile(`(?:^|[^A-Z0-9])([A-Z]{4}\d{1,2})(?:[^A-Z0-9]|$)`)

// classificationTokens are the trailing share-class and listing-segment
// codes printed after the company name. Stripping them yields alias
// variants worth learning alongside the full raw name.
var classificationTokens = map[string]bool{
	"ON": true, "PN": true, "PNA": true, "PNB": true, "UNT": true, "CI": true,
	"NM": true, "N1": true, "N2": true, "MA": true,
	"EJ": true, "ED": true, "EDJ": true, "ATZ": true, "EX": true,
}

// TickerResolver resolves raw instrument names to tickers through a
// fixed chain: learned mappings, pattern inference, remote lookup, then
// an interactive prompt. Every successful resolution is learned
// immediately, so answering a prompt once teaches the system durably
// even when the surrounding import is later rejected.
type TickerResolver struct {
	db     *sql.DB
	userID int64
	lookup TickerLookupService
	prompt TickerPrompt

	// session cache keyed by normalized name, seeded from the store
	cache map[string]string
}

func NewTickerResolver(db *sql.DB, userID int64, lookup TickerLookupService, prompt TickerPrompt) *TickerResolver {
	resolver := &TickerResolver{
		db:     db,
		userID: userID,
		lookup: lookup,
		prompt: prompt,
		cache:  make(map[string]string),
	}

	mappings, err := model.GetAllTickerMappings(db, userID)
	if err != nil {
		// An empty cache only costs extra lookups and prompts; resolution
		// still works.
		logger.L.Warn("Could not load ticker mappings, starting with empty cache", "userID", userID, "error", err)
		return resolver
	}
	resolver.cache = mappings
	return resolver
}

// NormalizeName collapses runs of whitespace and uppercases the result.
// It is the canonical mapping key on both the read and write paths.
func NormalizeName(rawName string) string {
	return strings.ToUpper(strings.Join(strings.Fields(rawName), " "))
}

// Resolve walks the resolution chain for one candidate. It returns
// ErrPromptCancelled when the chain reaches the prompt and the user
// declines; the caller records that as a skip.
func (r *TickerResolver) Resolve(ctx context.Context, candidate models.TradeCandidate) (string, error) {
	normalized := NormalizeName(candidate.RawName)

	if symbol, found := r.cache[normalized]; found {
		return symbol, nil
	}

	if matches := tickerPatternRe.FindStringSubmatch(normalized); matches != nil {
		symbol := matches[1]
		r.learn(normalized, symbol)
		return symbol, nil
	}

	symbol, err := r.lookup.SearchSymbol(ctx, candidate.RawName)
	if err != nil {
		logger.L.Warn("Remote ticker lookup failed, falling through to prompt", "rawName", candidate.RawName, "error", err)
	} else if symbol != "" {
		r.learn(normalized, symbol)
		return symbol, nil
	}

	if r.prompt == nil {
		return "", ErrPromptCancelled
	}
	answer, err := r.prompt.Prompt(ctx, candidate.RawName, candidate)
	if err != nil {
		if errors.Is(err, ErrPromptCancelled) {
			return "", ErrPromptCancelled
		}
		return "", err
	}
	answer = strings.ToUpper(strings.TrimSpace(answer))
	if answer == "" {
		return "", ErrPromptCancelled
	}

	r.learn(normalized, answer)
	return answer, nil
}

// learn records a resolution under the normalized name and its
// classification-stripped variants, in memory and in the store. A store
// failure is logged and absorbed: the in-memory mapping still serves the
// rest of the session.
func (r *TickerResolver) learn(normalized, symbol string) {
	for _, variant := range nameVariants(normalized) {
		if _, exists := r.cache[variant]; exists {
			continue
		}
		r.cache[variant] = symbol
		if err := model.PutTickerMapping(r.db, r.userID, variant, symbol); err != nil {
			logger.L.Warn("Could not persist ticker mapping", "normalizedName", variant, "symbol", symbol, "error", err)
		}
	}
}

// nameVariants returns the normalized name plus progressively shorter
// forms: trailing classification tokens stripped, then a trailing
// corporate suffix. "PETROBRAS SA PN N2" also teaches "PETROBRAS SA PN",
// "PETROBRAS SA" and "PETROBRAS".
func nameVariants(normalized string) []string {
	variants := []string{normalized}
	fields := strings.Fields(normalized)

	for len(fields) > 1 && classificationTokens[fields[len(fields)-1]] {
		fields = fields[:len(fields)-1]
		variants = append(variants, strings.Join(fields, " "))
	}

	if len(fields) > 1 {
		switch fields[len(fields)-1] {
		case "SA", "S/A", "S.A.", "S.A":
			variants = append(variants, strings.Join(fields[:len(fields)-1], " "))
		}
	}
	return variants
}
