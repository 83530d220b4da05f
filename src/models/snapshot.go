package models

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Snapshot records a portfolio's valuation at the end of one calendar day.
type Snapshot struct {
	ID          string          `json:"id"`
	PortfolioID string          `json:"portfolio_id"`
	Date        string          `json:"date"`
	Invested    decimal.Decimal `json:"invested"`
	MarketValue decimal.Decimal `json:"market_value"`
	PnLAbsolute decimal.Decimal `json:"pnl_absolute"`
	PnLPercent  decimal.Decimal `json:"pnl_percent"`
}

// UpsertSnapshot stores or replaces the snapshot for (portfolio, date).
func UpsertSnapshot(db *sql.DB, s *Snapshot) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := db.Exec(`
	INSERT INTO snapshots (id, portfolio_id, date, invested, market_value, pnl_absolute, pnl_percent)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(portfolio_id, date) DO UPDATE SET
		invested = excluded.invested,
		market_value = excluded.market_value,
		pnl_absolute = excluded.pnl_absolute,
		pnl_percent = excluded.pnl_percent`,
		s.ID, s.PortfolioID, s.Date,
		s.Invested.String(), s.MarketValue.String(),
		s.PnLAbsolute.String(), s.PnLPercent.String())
	return err
}

// ListSnapshots returns a portfolio's snapshots in date order, optionally
// bounded by inclusive calendar dates (empty string means unbounded).
func ListSnapshots(db *sql.DB, portfolioID, startDate, endDate string) ([]Snapshot, error) {
	query := `
	SELECT id, portfolio_id, date, invested, market_value, pnl_absolute, pnl_percent
	FROM snapshots WHERE portfolio_id = ?`
	args := []interface{}{portfolioID}
	if startDate != "" {
		query += ` AND date >= ?`
		args = append(args, startDate)
	}
	if endDate != "" {
		query += ` AND date <= ?`
		args = append(args, endDate)
	}
	query += ` ORDER BY date`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var s Snapshot
		var invested, marketValue, pnlAbs, pnlPct string
		if err := rows.Scan(&s.ID, &s.PortfolioID, &s.Date, &invested, &marketValue, &pnlAbs, &pnlPct); err != nil {
			return nil, err
		}
		if s.Invested, err = parseDecimal(invested); err != nil {
			return nil, err
		}
		if s.MarketValue, err = parseDecimal(marketValue); err != nil {
			return nil, err
		}
		if s.PnLAbsolute, err = parseDecimal(pnlAbs); err != nil {
			return nil, err
		}
		if s.PnLPercent, err = parseDecimal(pnlPct); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}
