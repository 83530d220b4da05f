package fiscal

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mlocoes/BolsaV2/src/models"
)

func day(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return parsed
}

func trade(t *testing.T, symbol, txType string, quantity, price float64, date string) models.Transaction {
	t.Helper()
	return models.Transaction{
		Symbol:   symbol,
		Type:     txType,
		Quantity: decimal.NewFromFloat(quantity),
		Price:    decimal.NewFromFloat(price),
		Date:     day(t, date),
	}
}

func TestComputeMatchesOldestLotsFirst(t *testing.T) {
	m := NewMatcher()
	result, err := m.Compute([]models.Transaction{
		trade(t, "AAPL", models.TransactionBuy, 10, 100, "2024-01-01"),
		trade(t, "AAPL", models.TransactionBuy, 10, 110, "2024-01-02"),
		trade(t, "AAPL", models.TransactionSell, 15, 150, "2024-01-03"),
	}, nil, nil)
	require.NoError(t, err)
	require.Len(t, result.Items, 2)

	assert.True(t, result.Items[0].Quantity.Equal(decimal.NewFromInt(10)), "first match consumes the whole oldest lot")
	assert.Equal(t, "2024-01-01", result.Items[0].DateBuy)
	assert.True(t, result.Items[1].Quantity.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "2024-01-02", result.Items[1].DateBuy)
}

func TestComputePartialLotScenario(t *testing.T) {
	m := NewMatcher()
	result, err := m.Compute([]models.Transaction{
		trade(t, "AAPL", models.TransactionBuy, 10, 100, "2024-01-01"),
		trade(t, "AAPL", models.TransactionBuy, 5, 120, "2024-02-01"),
		trade(t, "AAPL", models.TransactionSell, 12, 150, "2024-03-01"),
	}, nil, nil)
	require.NoError(t, err)
	require.Len(t, result.Items, 2)

	first := result.Items[0]
	assert.True(t, first.Quantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, first.PriceBuy.Equal(decimal.NewFromInt(100)))
	assert.True(t, first.PriceSell.Equal(decimal.NewFromInt(150)))
	assert.True(t, first.Result.Equal(decimal.NewFromInt(500)))

	second := result.Items[1]
	assert.True(t, second.Quantity.Equal(decimal.NewFromInt(2)))
	assert.True(t, second.PriceBuy.Equal(decimal.NewFromInt(120)))
	assert.True(t, second.Result.Equal(decimal.NewFromInt(60)))

	assert.True(t, result.TotalResult.Equal(decimal.NewFromInt(560)))
}

func TestComputeWindowExcludesEarlierSales(t *testing.T) {
	m := NewMatcher()
	start := day(t, "2024-04-01")
	result, err := m.Compute([]models.Transaction{
		trade(t, "AAPL", models.TransactionBuy, 10, 100, "2024-01-01"),
		trade(t, "AAPL", models.TransactionBuy, 5, 120, "2024-02-01"),
		trade(t, "AAPL", models.TransactionSell, 12, 150, "2024-03-01"),
	}, &start, nil)
	require.NoError(t, err)

	assert.Empty(t, result.Items)
	assert.True(t, result.TotalResult.IsZero())
}

func TestComputeWindowDoesNotChangeMatching(t *testing.T) {
	// Two sales; narrowing the window to the second one must still match it
	// against the lot left over by the first, not against a fresh queue.
	transactions := []models.Transaction{
		trade(t, "AAPL", models.TransactionBuy, 10, 100, "2024-01-01"),
		trade(t, "AAPL", models.TransactionBuy, 10, 200, "2024-02-01"),
		trade(t, "AAPL", models.TransactionSell, 10, 150, "2024-03-01"),
		trade(t, "AAPL", models.TransactionSell, 10, 250, "2024-04-01"),
	}

	m := NewMatcher()
	start := day(t, "2024-04-01")
	result, err := m.Compute(transactions, &start, nil)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	// The second sale must consume the 200-cost lot (the 100-cost lot was
	// used by the out-of-window first sale).
	assert.True(t, result.Items[0].PriceBuy.Equal(decimal.NewFromInt(200)))
	assert.True(t, result.TotalResult.Equal(decimal.NewFromInt(500)))
}

func TestComputeConservation(t *testing.T) {
	transactions := []models.Transaction{
		trade(t, "AAPL", models.TransactionBuy, 7, 90, "2024-01-01"),
		trade(t, "AAPL", models.TransactionBuy, 3.5, 95, "2024-01-10"),
		trade(t, "AAPL", models.TransactionSell, 4, 100, "2024-01-15"),
		trade(t, "AAPL", models.TransactionBuy, 2, 80, "2024-02-01"),
		trade(t, "AAPL", models.TransactionSell, 6.25, 110, "2024-02-20"),
	}

	m := NewMatcher()
	result, err := m.Compute(transactions, nil, nil)
	require.NoError(t, err)

	matched := decimal.Zero
	for _, item := range result.Items {
		matched = matched.Add(item.Quantity)
	}
	sold := decimal.Zero
	for _, tx := range transactions {
		if tx.Type == models.TransactionSell {
			sold = sold.Add(tx.Quantity)
		}
	}
	assert.True(t, matched.Equal(sold), "matched quantity %s must equal sold quantity %s", matched, sold)
}

func TestComputeOversellFails(t *testing.T) {
	m := NewMatcher()
	_, err := m.Compute([]models.Transaction{
		trade(t, "AAPL", models.TransactionBuy, 10, 100, "2024-01-01"),
		trade(t, "AAPL", models.TransactionSell, 20, 150, "2024-02-01"),
	}, nil, nil)
	require.Error(t, err)

	var lotsErr *InsufficientLotsError
	require.True(t, errors.As(err, &lotsErr))
	assert.Equal(t, "AAPL", lotsErr.Symbol)
	assert.True(t, lotsErr.Requested.Equal(decimal.NewFromInt(20)))
	assert.True(t, lotsErr.Available.Equal(decimal.NewFromInt(10)))
	assert.True(t, lotsErr.Shortfall().Equal(decimal.NewFromInt(10)))
}

func TestComputeOversellWithEmptyQueue(t *testing.T) {
	m := NewMatcher()
	_, err := m.Compute([]models.Transaction{
		trade(t, "MSFT", models.TransactionSell, 1, 150, "2024-02-01"),
	}, nil, nil)

	var lotsErr *InsufficientLotsError
	require.True(t, errors.As(err, &lotsErr))
	assert.True(t, lotsErr.Available.IsZero())
}

func TestComputeAssetsAreIndependent(t *testing.T) {
	m := NewMatcher()
	result, err := m.Compute([]models.Transaction{
		trade(t, "AAPL", models.TransactionBuy, 10, 100, "2024-01-01"),
		trade(t, "MSFT", models.TransactionBuy, 5, 300, "2024-01-02"),
		trade(t, "AAPL", models.TransactionSell, 10, 120, "2024-02-01"),
		trade(t, "MSFT", models.TransactionSell, 5, 310, "2024-02-02"),
	}, nil, nil)
	require.NoError(t, err)
	require.Len(t, result.Items, 2)

	for _, item := range result.Items {
		switch item.Symbol {
		case "AAPL":
			assert.True(t, item.PriceBuy.Equal(decimal.NewFromInt(100)))
		case "MSFT":
			assert.True(t, item.PriceBuy.Equal(decimal.NewFromInt(300)))
		default:
			t.Fatalf("unexpected symbol %s", item.Symbol)
		}
	}
}

func TestComputeOversoldAssetDoesNotBlockOthers(t *testing.T) {
	// MSFT is oversold; the call fails, and the error names MSFT only.
	m := NewMatcher()
	_, err := m.Compute([]models.Transaction{
		trade(t, "AAPL", models.TransactionBuy, 10, 100, "2024-01-01"),
		trade(t, "AAPL", models.TransactionSell, 5, 120, "2024-02-01"),
		trade(t, "MSFT", models.TransactionSell, 5, 310, "2024-02-02"),
	}, nil, nil)
	require.Error(t, err)

	var lotsErr *InsufficientLotsError
	require.True(t, errors.As(err, &lotsErr))
	assert.Equal(t, "MSFT", lotsErr.Symbol)
	assert.NotContains(t, err.Error(), "AAPL")
}

func TestComputeIgnoresNonTradeTypes(t *testing.T) {
	m := NewMatcher()
	result, err := m.Compute([]models.Transaction{
		trade(t, "AAPL", models.TransactionBuy, 10, 100, "2024-01-01"),
		trade(t, "AAPL", models.TransactionDividend, 10, 2, "2024-01-15"),
		trade(t, "AAPL", models.TransactionDeposit, 1000, 1, "2024-01-20"),
		trade(t, "AAPL", models.TransactionWithdrawal, 500, 1, "2024-01-25"),
		trade(t, "AAPL", models.TransactionSell, 10, 120, "2024-02-01"),
	}, nil, nil)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.True(t, result.TotalResult.Equal(decimal.NewFromInt(200)))
}

func TestComputeSameDayKeepsInputOrder(t *testing.T) {
	// Buy and sell on the same date: the store's sequence decides, so the
	// buy listed first covers the sale.
	m := NewMatcher()
	result, err := m.Compute([]models.Transaction{
		trade(t, "AAPL", models.TransactionBuy, 10, 100, "2024-01-01"),
		trade(t, "AAPL", models.TransactionSell, 10, 110, "2024-01-01"),
	}, nil, nil)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.True(t, result.TotalResult.Equal(decimal.NewFromInt(100)))
}

func TestComputeInvalidDateRange(t *testing.T) {
	m := NewMatcher()
	start := day(t, "2024-06-01")
	end := day(t, "2024-01-01")
	_, err := m.Compute(nil, &start, &end)
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestComputeIsIdempotent(t *testing.T) {
	transactions := []models.Transaction{
		trade(t, "AAPL", models.TransactionBuy, 10, 100, "2024-01-01"),
		trade(t, "AAPL", models.TransactionBuy, 5, 120, "2024-02-01"),
		trade(t, "AAPL", models.TransactionSell, 12, 150, "2024-03-01"),
	}

	m := NewMatcher()
	first, err := m.Compute(transactions, nil, nil)
	require.NoError(t, err)
	second, err := m.Compute(transactions, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestComputeEmptyInput(t *testing.T) {
	m := NewMatcher()
	result, err := m.Compute(nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.True(t, result.TotalResult.IsZero())
}

func TestFilterItemsBounds(t *testing.T) {
	items := []models.FiscalResultItem{
		{Symbol: "AAPL", DateSell: "2024-01-10", Result: decimal.NewFromInt(10)},
		{Symbol: "AAPL", DateSell: "2024-02-10", Result: decimal.NewFromInt(20)},
		{Symbol: "AAPL", DateSell: "2024-03-10", Result: decimal.NewFromInt(-5)},
	}

	start := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	result, err := FilterItems(items, &start, &end)
	require.NoError(t, err)

	require.Len(t, result.Items, 2, "both bounds are inclusive")
	assert.True(t, result.TotalResult.Equal(decimal.NewFromInt(15)))
}

func TestFilterItemsBadSellDate(t *testing.T) {
	items := []models.FiscalResultItem{
		{Symbol: "AAPL", DateSell: "2024-01-10", Result: decimal.NewFromInt(10)},
		{Symbol: "MSFT", DateSell: "not-a-date", Result: decimal.NewFromInt(20)},
	}

	result, err := FilterItems(items, nil, nil)
	require.Error(t, err, "a corrupt row must not be silently dropped from the total")
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "MSFT")
}
