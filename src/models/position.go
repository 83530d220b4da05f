package models

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Position is the current holding of one asset inside a portfolio, with a
// weighted-average cost basis. It is derived state, recalculated from the
// full transaction history on every mutation.
type Position struct {
	ID           string          `json:"id"`
	PortfolioID  string          `json:"portfolio_id"`
	AssetID      string          `json:"asset_id"`
	Symbol       string          `json:"symbol"`
	Quantity     decimal.Decimal `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
}

// UpsertPosition stores or replaces the position for (portfolio, asset).
func UpsertPosition(db *sql.DB, p *Position) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := db.Exec(`
	INSERT INTO positions (id, portfolio_id, asset_id, quantity, average_price)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(portfolio_id, asset_id) DO UPDATE SET
		quantity = excluded.quantity,
		average_price = excluded.average_price,
		updated_at = CURRENT_TIMESTAMP`,
		p.ID, p.PortfolioID, p.AssetID, p.Quantity.String(), p.AveragePrice.String())
	return err
}

// DeletePosition removes the position for (portfolio, asset), if any.
func DeletePosition(db *sql.DB, portfolioID, assetID string) error {
	_, err := db.Exec(`DELETE FROM positions WHERE portfolio_id = ? AND asset_id = ?`, portfolioID, assetID)
	return err
}

// ListPositionsByPortfolio returns the portfolio's positions joined with
// asset symbols, ordered by symbol.
func ListPositionsByPortfolio(db *sql.DB, portfolioID string) ([]Position, error) {
	rows, err := db.Query(`
	SELECT p.id, p.portfolio_id, p.asset_id, a.symbol, p.quantity, p.average_price
	FROM positions p
	JOIN assets a ON a.id = p.asset_id
	WHERE p.portfolio_id = ?
	ORDER BY a.symbol`, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		var p Position
		var quantity, averagePrice string
		if err := rows.Scan(&p.ID, &p.PortfolioID, &p.AssetID, &p.Symbol, &quantity, &averagePrice); err != nil {
			return nil, err
		}
		if p.Quantity, err = parseDecimal(quantity); err != nil {
			return nil, err
		}
		if p.AveragePrice, err = parseDecimal(averagePrice); err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}
