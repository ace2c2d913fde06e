package services

import (
	"errors"
	"fmt"
	"strings"
)

// Import error taxonomy. Per-line problems are accumulated as skips and
// never surfaced individually; only batch-level rejections carry them.
var (
	// ErrDocumentUnreadable means text extraction or header recovery
	// failed outright. Nothing can be salvaged from the document.
	ErrDocumentUnreadable = errors.New("document unreadable")

	// ErrNoTradesFound means no line matched any trade row pattern, or
	// every candidate was skipped.
	ErrNoTradesFound = errors.New("no valid trades found")

	// ErrOperationCountMismatch means fewer operations were accepted than
	// the structural row count demands. The whole batch is rejected.
	ErrOperationCountMismatch = errors.New("operation count mismatch")

	// ErrDuplicateNote means the (note number, note date, user) triple was
	// already imported.
	ErrDuplicateNote = errors.New("brokerage note already imported")

	// ErrPromptCancelled is returned by a ticker prompt when the user
	// declines to answer. It is recorded as a skip, never raised to the
	// caller directly.
	ErrPromptCancelled = errors.New("ticker prompt cancelled")
)

// SkipReason records why one candidate row was excluded from the import.
type SkipReason struct {
	Sequence int    `json:"sequence"`
	RawName  string `json:"raw_name"`
	Reason   string `json:"reason"`
}

// ImportRejection is the structured all-or-nothing rejection: the batch
// kind, a human-readable message, and every per-line skip so the user
// can fix mappings and retry the whole document.
type ImportRejection struct {
	Kind    error        `json:"-"`
	Message string       `json:"message"`
	Skips   []SkipReason `json:"skips,omitempty"`
}

func (r *ImportRejection) Error() string {
	if len(r.Skips) == 0 {
		return r.Message
	}
	parts := make([]string, 0, len(r.Skips))
	for _, skip := range r.Skips {
		parts = append(parts, fmt.Sprintf("line %d (%s): %s", skip.Sequence, skip.RawName, skip.Reason))
	}
	return fmt.Sprintf("%s: %s", r.Message, strings.Join(parts, "; "))
}

func (r *ImportRejection) Unwrap() error {
	return r.Kind
}
