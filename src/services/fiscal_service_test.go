package services

import (
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mlocoes/BolsaV2/src/models"
)

func TestGetFiscalResult_ComputesFromHistory(t *testing.T) {
	portfolioID, assetID := setupTestDB(t)
	svc := NewFiscalService(cache.New(time.Minute, time.Minute))

	insertTrade(t, portfolioID, assetID, models.TransactionBuy, 10, 100, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	insertTrade(t, portfolioID, assetID, models.TransactionSell, 10, 150, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))

	result, err := svc.GetFiscalResult(portfolioID, nil, nil)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "AAPL", result.Items[0].Symbol)
	assert.True(t, result.TotalResult.Equal(decimal.NewFromInt(500)), "got %s", result.TotalResult)
}

func TestGetFiscalResult_CacheInvalidation(t *testing.T) {
	portfolioID, assetID := setupTestDB(t)
	svc := NewFiscalService(cache.New(time.Minute, time.Minute))

	insertTrade(t, portfolioID, assetID, models.TransactionBuy, 10, 100, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	insertTrade(t, portfolioID, assetID, models.TransactionSell, 5, 150, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))

	first, err := svc.GetFiscalResult(portfolioID, nil, nil)
	require.NoError(t, err)
	require.Len(t, first.Items, 1)

	// A mutation without invalidation still serves the cached ledger.
	insertTrade(t, portfolioID, assetID, models.TransactionSell, 5, 180, time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC))
	stale, err := svc.GetFiscalResult(portfolioID, nil, nil)
	require.NoError(t, err)
	assert.Len(t, stale.Items, 1)

	svc.InvalidatePortfolio(portfolioID)
	fresh, err := svc.GetFiscalResult(portfolioID, nil, nil)
	require.NoError(t, err)
	assert.Len(t, fresh.Items, 2)
}

func TestGetFiscalResult_WindowFiltersOutputOnly(t *testing.T) {
	portfolioID, assetID := setupTestDB(t)
	svc := NewFiscalService(cache.New(time.Minute, time.Minute))

	insertTrade(t, portfolioID, assetID, models.TransactionBuy, 10, 100, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC))
	insertTrade(t, portfolioID, assetID, models.TransactionSell, 10, 120, time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC))
	insertTrade(t, portfolioID, assetID, models.TransactionBuy, 10, 200, time.Date(2022, 7, 1, 0, 0, 0, 0, time.UTC))
	insertTrade(t, portfolioID, assetID, models.TransactionSell, 10, 250, time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC))

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)

	result, err := svc.GetFiscalResult(portfolioID, &start, &end)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	// The 2023 sale matches the 200-cost lot opened after the first sale
	// consumed the 100-cost one; the earlier sale is filtered, not unmatched.
	assert.Equal(t, "2022-07-01", result.Items[0].DateBuy)
	assert.True(t, result.TotalResult.Equal(decimal.NewFromInt(500)), "got %s", result.TotalResult)
}

func TestGetFiscalResult_InvalidRange(t *testing.T) {
	portfolioID, _ := setupTestDB(t)
	svc := NewFiscalService(cache.New(time.Minute, time.Minute))

	start := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.GetFiscalResult(portfolioID, &start, &end)
	require.Error(t, err)
}
