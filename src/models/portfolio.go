package models

import (
	"database/sql"

	"github.com/google/uuid"
)

type Portfolio struct {
	ID          string `json:"id"`
	UserID      int64  `json:"user_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// PortfolioDetail embeds the portfolio's current positions.
type PortfolioDetail struct {
	Portfolio
	Positions []Position `json:"positions"`
}

// CreatePortfolio inserts a new portfolio, assigning a fresh id.
func CreatePortfolio(db *sql.DB, p *Portfolio) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := db.Exec(`
	INSERT INTO portfolios (id, user_id, name, description)
	VALUES (?, ?, ?, ?)`, p.ID, p.UserID, p.Name, p.Description)
	return err
}

// GetPortfolioByID retrieves a portfolio by id.
func GetPortfolioByID(db *sql.DB, id string) (*Portfolio, error) {
	row := db.QueryRow(`
	SELECT id, user_id, name, COALESCE(description, '') FROM portfolios WHERE id = ?`, id)
	var p Portfolio
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListPortfoliosByUser returns all portfolios owned by a user.
func ListPortfoliosByUser(db *sql.DB, userID int64) ([]Portfolio, error) {
	rows, err := db.Query(`
	SELECT id, user_id, name, COALESCE(description, '') FROM portfolios
	WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var portfolios []Portfolio
	for rows.Next() {
		var p Portfolio
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		portfolios = append(portfolios, p)
	}
	return portfolios, rows.Err()
}

// ListAllPortfolios returns every portfolio. Used by the snapshot scheduler.
func ListAllPortfolios(db *sql.DB) ([]Portfolio, error) {
	rows, err := db.Query(`SELECT id, user_id, name, COALESCE(description, '') FROM portfolios`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var portfolios []Portfolio
	for rows.Next() {
		var p Portfolio
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		portfolios = append(portfolios, p)
	}
	return portfolios, rows.Err()
}

// UpdatePortfolio updates name and description of an existing portfolio.
func UpdatePortfolio(db *sql.DB, p *Portfolio) error {
	res, err := db.Exec(`
	UPDATE portfolios SET name = ?, description = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`, p.Name, p.Description, p.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePortfolio removes a portfolio and its dependent rows.
func DeletePortfolio(db *sql.DB, id string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM snapshots WHERE portfolio_id = ?`,
		`DELETE FROM positions WHERE portfolio_id = ?`,
		`DELETE FROM transactions WHERE portfolio_id = ?`,
		`DELETE FROM portfolios WHERE id = ?`,
	} {
		if _, err := tx.Exec(stmt, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}
