package processors

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/notafolio/backend/src/models"
)

func buy(symbol string, quantity int, price, value string) models.Operation {
	return models.Operation{
		Symbol:   symbol,
		Side:     models.SideBuy,
		Quantity: quantity,
		Price:    decimal.RequireFromString(price),
		Value:    decimal.RequireFromString(value),
	}
}

func sell(symbol string, quantity int, price, value string) models.Operation {
	return models.Operation{
		Symbol:   symbol,
		Side:     models.SideSell,
		Quantity: -quantity,
		Price:    decimal.RequireFromString(price),
		Value:    decimal.RequireFromString(value),
	}
}

func TestWeightedAverageAccumulation(t *testing.T) {
	processor := NewPositionProcessor()
	positions := processor.Process([]models.Operation{
		buy("PETR4", 100, "10.00", "1000.00"),
		buy("PETR4", 50, "11.00", "550.00"),
		buy("PETR4", 50, "12.00", "600.00"),
	})

	require.Len(t, positions, 1)
	position := positions[0]
	assert.Equal(t, "PETR4", position.Symbol)
	assert.Equal(t, 200, position.Quantity)
	assert.True(t, position.InvestedValue.Equal(decimal.RequireFromString("2150.00")), "invested %s", position.InvestedValue)
	assert.True(t, position.AveragePrice.Equal(decimal.RequireFromString("10.75")), "avg %s", position.AveragePrice)
	assert.True(t, position.RealizedPnL.IsZero())
}

func TestPartialSellRealizesAgainstAverage(t *testing.T) {
	processor := NewPositionProcessor()
	positions := processor.Process([]models.Operation{
		buy("PETR4", 100, "10.00", "1000.00"),
		buy("PETR4", 50, "11.00", "550.00"),
		buy("PETR4", 50, "12.00", "600.00"),
		sell("PETR4", 80, "12.00", "960.00"),
	})

	require.Len(t, positions, 1)
	position := positions[0]
	assert.Equal(t, 120, position.Quantity)
	// (12.00 - 10.75) * 80
	assert.True(t, position.RealizedPnL.Equal(decimal.RequireFromString("100.00")), "realized %s", position.RealizedPnL)
	// 2150.00 - 10.75 * 80
	assert.True(t, position.InvestedValue.Equal(decimal.RequireFromString("1290.00")), "invested %s", position.InvestedValue)
	// A sell never moves the average.
	assert.True(t, position.AveragePrice.Equal(decimal.RequireFromString("10.75")), "avg %s", position.AveragePrice)
}

func TestFullSellResetsButKeepsRealized(t *testing.T) {
	processor := NewPositionProcessor()
	positions := processor.Process([]models.Operation{
		buy("VALE3", 100, "60.00", "6000.00"),
		sell("VALE3", 100, "65.00", "6500.00"),
	})

	require.Len(t, positions, 1)
	position := positions[0]
	assert.Equal(t, 0, position.Quantity)
	assert.True(t, position.AveragePrice.IsZero())
	assert.True(t, position.InvestedValue.IsZero())
	assert.True(t, position.RealizedPnL.Equal(decimal.RequireFromString("500.00")), "realized %s", position.RealizedPnL)
}

func TestRebuyAfterFullSellStartsFreshAverage(t *testing.T) {
	processor := NewPositionProcessor()
	positions := processor.Process([]models.Operation{
		buy("ITSA4", 100, "9.00", "900.00"),
		sell("ITSA4", 100, "10.00", "1000.00"),
		buy("ITSA4", 50, "8.00", "400.00"),
	})

	require.Len(t, positions, 1)
	position := positions[0]
	assert.Equal(t, 50, position.Quantity)
	assert.True(t, position.AveragePrice.Equal(decimal.RequireFromString("8.00")), "avg %s", position.AveragePrice)
	assert.True(t, position.RealizedPnL.Equal(decimal.RequireFromString("100.00")), "realized %s", position.RealizedPnL)
}

func TestLossMakingSell(t *testing.T) {
	processor := NewPositionProcessor()
	positions := processor.Process([]models.Operation{
		buy("BBDC4", 100, "15.00", "1500.00"),
		sell("BBDC4", 40, "13.50", "540.00"),
	})

	require.Len(t, positions, 1)
	position := positions[0]
	assert.Equal(t, 60, position.Quantity)
	assert.True(t, position.RealizedPnL.Equal(decimal.RequireFromString("-60.00")), "realized %s", position.RealizedPnL)
}

func TestSymbolsAreIndependentAndSorted(t *testing.T) {
	processor := NewPositionProcessor()
	positions := processor.Process([]models.Operation{
		buy("VALE3", 10, "60.00", "600.00"),
		buy("PETR4", 10, "28.00", "280.00"),
		buy("ITSA4", 10, "9.00", "90.00"),
	})

	require.Len(t, positions, 3)
	assert.Equal(t, "ITSA4", positions[0].Symbol)
	assert.Equal(t, "PETR4", positions[1].Symbol)
	assert.Equal(t, "VALE3", positions[2].Symbol)
}

func TestClosedFlatPositionIsDropped(t *testing.T) {
	// Quantity back to zero with zero realized result carries no
	// information; the report omits it.
	processor := NewPositionProcessor()
	positions := processor.Process([]models.Operation{
		buy("WEGE3", 10, "40.00", "400.00"),
		sell("WEGE3", 10, "40.00", "400.00"),
	})
	assert.Empty(t, positions)
}

func TestProcessEmptyStream(t *testing.T) {
	processor := NewPositionProcessor()
	assert.Empty(t, processor.Process(nil))
}
