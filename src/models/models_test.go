package models

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/Mlocoes/BolsaV2/src/database"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, database.CreateSchema(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func seedPortfolio(t *testing.T, db *sql.DB) *Portfolio {
	t.Helper()
	user := &User{Username: "tester", Email: "tester@example.com", Password: "x"}
	require.NoError(t, user.CreateUser(db))
	portfolio := &Portfolio{UserID: user.ID, Name: "main"}
	require.NoError(t, CreatePortfolio(db, portfolio))
	return portfolio
}

func TestPortfolioCRUD(t *testing.T) {
	db := openTestDB(t)
	portfolio := seedPortfolio(t, db)
	require.NotEmpty(t, portfolio.ID)

	loaded, err := GetPortfolioByID(db, portfolio.ID)
	require.NoError(t, err)
	assert.Equal(t, "main", loaded.Name)

	loaded.Name = "renamed"
	loaded.Description = "long term"
	require.NoError(t, UpdatePortfolio(db, loaded))

	loaded, err = GetPortfolioByID(db, portfolio.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", loaded.Name)
	assert.Equal(t, "long term", loaded.Description)

	require.NoError(t, DeletePortfolio(db, portfolio.ID))
	_, err = GetPortfolioByID(db, portfolio.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePortfolio_NotFound(t *testing.T) {
	db := openTestDB(t)
	err := UpdatePortfolio(db, &Portfolio{ID: "missing", Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetOrCreateAssetBySymbol_Idempotent(t *testing.T) {
	db := openTestDB(t)

	first, err := GetOrCreateAssetBySymbol(db, "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", first.Symbol)
	assert.Equal(t, AssetTypeStock, first.AssetType)

	second, err := GetOrCreateAssetBySymbol(db, " AAPL ")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestTransactionRoundTripAndOrdering(t *testing.T) {
	db := openTestDB(t)
	portfolio := seedPortfolio(t, db)
	asset, err := GetOrCreateAssetBySymbol(db, "AAPL")
	require.NoError(t, err)

	day := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	// Two trades on the same instant: listing must keep insertion order.
	for i, price := range []string{"100", "110", "90"} {
		date := day
		if i == 2 {
			date = day.AddDate(0, -1, 0)
		}
		tx := &Transaction{
			PortfolioID: portfolio.ID,
			AssetID:     asset.ID,
			Type:        TransactionBuy,
			Quantity:    decimal.NewFromInt(1),
			Price:       decimal.RequireFromString(price),
			Date:        date,
		}
		require.NoError(t, InsertTransaction(db, tx))
	}

	transactions, err := ListTransactionsByPortfolio(db, portfolio.ID)
	require.NoError(t, err)
	require.Len(t, transactions, 3)

	// The April trade sorts first despite being inserted last.
	assert.True(t, transactions[0].Price.Equal(decimal.NewFromInt(90)))
	assert.True(t, transactions[1].Price.Equal(decimal.NewFromInt(100)))
	assert.True(t, transactions[2].Price.Equal(decimal.NewFromInt(110)))
	assert.Equal(t, "AAPL", transactions[0].Symbol)
}

func TestDeletePortfolio_CascadesDependents(t *testing.T) {
	db := openTestDB(t)
	portfolio := seedPortfolio(t, db)
	asset, err := GetOrCreateAssetBySymbol(db, "AAPL")
	require.NoError(t, err)

	tx := &Transaction{
		PortfolioID: portfolio.ID,
		AssetID:     asset.ID,
		Type:        TransactionBuy,
		Quantity:    decimal.NewFromInt(1),
		Price:       decimal.NewFromInt(100),
		Date:        time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, InsertTransaction(db, tx))
	require.NoError(t, UpsertPosition(db, &Position{
		PortfolioID:  portfolio.ID,
		AssetID:      asset.ID,
		Quantity:     decimal.NewFromInt(1),
		AveragePrice: decimal.NewFromInt(100),
	}))
	require.NoError(t, UpsertSnapshot(db, &Snapshot{
		PortfolioID: portfolio.ID,
		Date:        "2023-01-01",
		Invested:    decimal.NewFromInt(100),
		MarketValue: decimal.NewFromInt(100),
		PnLAbsolute: decimal.Zero,
		PnLPercent:  decimal.Zero,
	}))

	require.NoError(t, DeletePortfolio(db, portfolio.ID))

	transactions, err := ListTransactionsByPortfolio(db, portfolio.ID)
	require.NoError(t, err)
	assert.Empty(t, transactions)

	positions, err := ListPositionsByPortfolio(db, portfolio.ID)
	require.NoError(t, err)
	assert.Empty(t, positions)

	snapshots, err := ListSnapshots(db, portfolio.ID, "", "")
	require.NoError(t, err)
	assert.Empty(t, snapshots)
}

func TestUpsertQuote_ReplacesSameDay(t *testing.T) {
	db := openTestDB(t)
	asset, err := GetOrCreateAssetBySymbol(db, "AAPL")
	require.NoError(t, err)

	q := &Quote{
		AssetID: asset.ID,
		Date:    "2023-01-15",
		Open:    decimal.NewFromInt(100),
		High:    decimal.NewFromInt(105),
		Low:     decimal.NewFromInt(99),
		Close:   decimal.NewFromInt(101),
		Volume:  1000,
		Source:  "manual",
	}
	require.NoError(t, UpsertQuote(db, q))

	q.Close = decimal.NewFromInt(103)
	require.NoError(t, UpsertQuote(db, q))

	quotes, err := ListQuotes(db, asset.ID, "", "")
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.True(t, quotes[0].Close.Equal(decimal.NewFromInt(103)))

	latest, err := GetLatestQuote(db, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "2023-01-15", latest.Date)
}

func TestSessionLifecycle(t *testing.T) {
	db := openTestDB(t)
	user := &User{Username: "tester", Email: "tester@example.com", Password: "x"}
	require.NoError(t, user.CreateUser(db))

	session := &Session{
		UserID:       user.ID,
		Token:        "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	require.NoError(t, CreateSession(db, session))

	loaded, err := GetSessionByToken(db, "access-token")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loaded.UserID)

	byRefresh, err := GetSessionByRefreshToken(db, "refresh-token")
	require.NoError(t, err)
	assert.Equal(t, session.ID, byRefresh.ID)

	require.NoError(t, DeleteSessionByToken(db, "access-token"))
	_, err = GetSessionByToken(db, "access-token")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpiredSessionIsRejected(t *testing.T) {
	db := openTestDB(t)
	user := &User{Username: "tester", Email: "tester@example.com", Password: "x"}
	require.NoError(t, user.CreateUser(db))

	session := &Session{
		UserID:       user.ID,
		Token:        "stale",
		RefreshToken: "stale-refresh",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}
	require.NoError(t, CreateSession(db, session))

	_, err := GetSessionByToken(db, "stale")
	assert.ErrorIs(t, err, ErrNotFound)
}
