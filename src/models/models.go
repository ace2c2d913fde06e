package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Operation sides, as printed on the note (C = compra, V = venda).
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Note processing statuses.
const (
	NoteStatusSuccess = "SUCCESS"
	NoteStatusFailed  = "FAILED"
)

// TradeCandidate is a tentative trade row recovered from the note text,
// before its instrument name has been resolved to a market symbol.
// Candidates are ephemeral; they are either turned into Operations or
// recorded as skips.
type TradeCandidate struct {
	Side        string          `json:"side"`
	MarketType  string          `json:"market_type"` // e.g. "VISTA", "FRACIONARIO"
	RawName     string          `json:"raw_name"`    // instrument field, may carry a classification code like "ON NM"
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Value       decimal.Decimal `json:"value"`
	DebitCredit string          `json:"debit_credit"` // "D" or "C"
	Sequence    int             `json:"sequence"`     // row order within the note
}

// Operation is a finalized, resolved trade record. Immutable once created.
// Quantity is sign-adjusted: negative for sells.
type Operation struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	NoteID      int64           `json:"note_id"`
	Symbol      string          `json:"symbol"`
	Side        string          `json:"side"`
	MarketType  string          `json:"market_type"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Value       decimal.Decimal `json:"value"`
	DebitCredit string          `json:"debit_credit"`
	Sequence    int             `json:"sequence"`
	NoteNumber  string          `json:"note_number"`
	NoteDate    string          `json:"note_date"` // ISO format (2006-01-02) so string order is date order
}

// FinancialSummary carries the aggregate amounts from the note's closing
// section. Advisory data only; all fields may be zero when the summary
// block could not be located.
type FinancialSummary struct {
	SettlementFee  decimal.Decimal `json:"settlement_fee"`
	ExchangeFees   decimal.Decimal `json:"exchange_fees"`
	Brokerage      decimal.Decimal `json:"brokerage"`
	Taxes          decimal.Decimal `json:"taxes"`
	IRRF           decimal.Decimal `json:"irrf"`
	NetAmount      decimal.Decimal `json:"net_amount"`
	NetDebitCredit string          `json:"net_debit_credit"`
	SettlementDate string          `json:"settlement_date"`
}

// BrokerageNote is the document-level import unit. The triple
// (user, note number, note date) is unique.
type BrokerageNote struct {
	ID           int64            `json:"id"`
	UserID       int64            `json:"user_id"`
	FileName     string           `json:"file_name"`
	NoteNumber   string           `json:"note_number"`
	NoteDate     string           `json:"note_date"`
	Status       string           `json:"status"`
	ErrorMessage string           `json:"error_message,omitempty"`
	Summary      FinancialSummary `json:"summary"`
	Operations   []Operation      `json:"operations,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// TickerMapping is a durable normalized-instrument-name -> symbol fact.
type TickerMapping struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	NormalizedName string    `json:"normalized_name"`
	Symbol         string    `json:"symbol"`
	CreatedAt      time.Time `json:"created_at"`
}

// Position is the per-symbol weighted-average cost ledger entry.
// It is derived from the ordered operation stream, never stored directly.
// A position whose quantity returned to zero keeps its realized P&L.
type Position struct {
	Symbol        string          `json:"symbol"`
	Quantity      int             `json:"quantity"`
	AveragePrice  decimal.Decimal `json:"average_price"`
	InvestedValue decimal.Decimal `json:"invested_value"`
	RealizedPnL   decimal.Decimal `json:"realized_pnl"`

	// Advisory, filled from an external quote when available.
	CurrentPrice  decimal.Decimal `json:"current_price,omitempty"`
	CurrentValue  decimal.Decimal `json:"current_value,omitempty"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl,omitempty"`
}
