package services

import (
	"strings"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mlocoes/BolsaV2/src/database"
	"github.com/Mlocoes/BolsaV2/src/models"
)

func newImportService() ImportExportService {
	return NewImportExportService(NewPositionService(), NewFiscalService(cache.New(time.Minute, time.Minute)))
}

func TestImportTransactionsCSV_ImportsRows(t *testing.T) {
	portfolioID, _ := setupTestDB(t)
	svc := newImportService()

	csv := "date,type,symbol,quantity,price\n" +
		"2023-01-01,buy,AAPL,10,100\n" +
		"2023-06-01,buy,MSFT,5,200\n"

	summary, err := svc.ImportTransactionsCSV(portfolioID, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.RowsImported)
	assert.Equal(t, 1, summary.AssetsCreated)

	txs, err := models.ListTransactionsByPortfolio(database.DB, portfolioID)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestImportTransactionsCSV_InvalidRowInsertsNothing(t *testing.T) {
	portfolioID, _ := setupTestDB(t)
	svc := newImportService()

	// The second row parses (valid decimal syntax) but fails validation.
	// The first row must not survive the rejected import.
	csv := "date,type,symbol,quantity,price\n" +
		"2023-01-01,buy,AAPL,10,100\n" +
		"2023-06-01,buy,AAPL,-5,100\n"

	_, err := svc.ImportTransactionsCSV(portfolioID, strings.NewReader(csv))
	require.ErrorIs(t, err, ErrImportFailed)
	assert.Contains(t, err.Error(), "row 2")

	txs, err := models.ListTransactionsByPortfolio(database.DB, portfolioID)
	require.NoError(t, err)
	assert.Empty(t, txs)

	positions, err := models.ListPositionsByPortfolio(database.DB, portfolioID)
	require.NoError(t, err)
	assert.Empty(t, positions)
}
