package processors

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/username/notafolio/backend/src/models"
	"github.com/username/notafolio/backend/src/utils"
)

// PositionProcessor derives portfolio positions from the full operation
// stream using the weighted-average cost method. Positions are never
// stored; they are recomputed from operations on demand.
type PositionProcessor struct{}

func NewPositionProcessor() *PositionProcessor {
	return &PositionProcessor{}
}

// Process folds the operations, already in ledger order, into one
// position per symbol. Symbols whose quantity returned to zero are kept
// when they carry realized profit or loss, so the report still shows
// closed trades.
func (p *PositionProcessor) Process(operations []models.Operation) []models.Position {
	bySymbol := make(map[string]*models.Position)
	for _, op := range operations {
		position, exists := bySymbol[op.Symbol]
		if !exists {
			position = &models.Position{Symbol: op.Symbol}
			bySymbol[op.Symbol] = position
		}
		Apply(position, op)
	}

	positions := make([]models.Position, 0, len(bySymbol))
	for _, position := range bySymbol {
		if position.Quantity == 0 && position.RealizedPnL.IsZero() {
			continue
		}
		positions = append(positions, *position)
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Symbol < positions[j].Symbol
	})
	return positions
}

// Apply folds a single operation into a position.
//
// Buys raise the invested value by the traded value and re-derive the
// weighted average price. Sells realize (sell price - average price) per
// share against the current average and release average cost from the
// invested value; the average price itself does not move on a sell.
// Selling the whole position (or more) resets quantity, average and
// invested value to zero while keeping the accumulated realized result.
func Apply(position *models.Position, op models.Operation) {
	quantity := utils.AbsInt(op.Quantity)
	quantityDec := decimal.NewFromInt(int64(quantity))

	if op.Side == models.SideBuy {
		position.InvestedValue = position.InvestedValue.Add(op.Value)
		position.Quantity += quantity
		if position.Quantity > 0 {
			position.AveragePrice = position.InvestedValue.
				Div(decimal.NewFromInt(int64(position.Quantity)))
		}
		return
	}

	position.RealizedPnL = position.RealizedPnL.
		Add(op.Price.Sub(position.AveragePrice).Mul(quantityDec))

	releasedCost := position.AveragePrice.Mul(quantityDec)
	position.InvestedValue = position.InvestedValue.Sub(releasedCost)
	position.Quantity -= quantity

	if position.Quantity <= 0 || position.InvestedValue.IsNegative() {
		position.Quantity = 0
		position.AveragePrice = decimal.Zero
		position.InvestedValue = decimal.Zero
	}
}
