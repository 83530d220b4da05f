package models

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction types. Only buy and sell participate in fiscal matching;
// the others affect cash and position bookkeeping.
const (
	TransactionBuy        = "buy"
	TransactionSell       = "sell"
	TransactionDividend   = "dividend"
	TransactionDeposit    = "deposit"
	TransactionWithdrawal = "withdrawal"
)

type Transaction struct {
	ID          string          `json:"id"`
	PortfolioID string          `json:"portfolio_id"`
	AssetID     string          `json:"asset_id"`
	Symbol      string          `json:"symbol"`
	Type        string          `json:"type"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Fees        decimal.Decimal `json:"fees"`
	Currency    string          `json:"currency"`
	Notes       string          `json:"notes,omitempty"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ValidTransactionType reports whether t is a known transaction type.
func ValidTransactionType(t string) bool {
	switch t {
	case TransactionBuy, TransactionSell, TransactionDividend, TransactionDeposit, TransactionWithdrawal:
		return true
	}
	return false
}

// Validate checks the field constraints shared by create and update.
func (t *Transaction) Validate() error {
	if !ValidTransactionType(t.Type) {
		return fmt.Errorf("unknown transaction type %q", t.Type)
	}
	if !t.Quantity.IsPositive() {
		return errors.New("quantity must be positive")
	}
	if !t.Price.IsPositive() {
		return errors.New("price must be positive")
	}
	if t.Fees.IsNegative() {
		return errors.New("fees must not be negative")
	}
	if t.Date.IsZero() {
		return errors.New("date is required")
	}
	return nil
}

// InsertTransaction stores a transaction, assigning a fresh id.
func InsertTransaction(db *sql.DB, t *Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Currency == "" {
		t.Currency = "USD"
	}
	_, err := db.Exec(`
	INSERT INTO transactions (id, portfolio_id, asset_id, type, quantity, price, fees, currency, notes, date)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.PortfolioID, t.AssetID, t.Type,
		t.Quantity.String(), t.Price.String(), t.Fees.String(),
		t.Currency, t.Notes, t.Date.UTC().Format(time.RFC3339))
	return err
}

// UpdateTransaction rewrites the mutable fields of a stored transaction.
func UpdateTransaction(db *sql.DB, t *Transaction) error {
	res, err := db.Exec(`
	UPDATE transactions SET asset_id = ?, type = ?, quantity = ?, price = ?, fees = ?, currency = ?, notes = ?, date = ?
	WHERE id = ?`,
		t.AssetID, t.Type, t.Quantity.String(), t.Price.String(), t.Fees.String(),
		t.Currency, t.Notes, t.Date.UTC().Format(time.RFC3339), t.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTransaction removes a transaction by id.
func DeleteTransaction(db *sql.DB, id string) error {
	res, err := db.Exec(`DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

const transactionSelect = `
	SELECT t.id, t.portfolio_id, t.asset_id, a.symbol, t.type, t.quantity, t.price, t.fees,
	       t.currency, COALESCE(t.notes, ''), t.date
	FROM transactions t
	JOIN assets a ON a.id = t.asset_id`

func scanTransaction(scanner interface {
	Scan(dest ...interface{}) error
}) (*Transaction, error) {
	var t Transaction
	var quantity, price, fees, date string
	err := scanner.Scan(&t.ID, &t.PortfolioID, &t.AssetID, &t.Symbol, &t.Type,
		&quantity, &price, &fees, &t.Currency, &t.Notes, &date)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if t.Quantity, err = parseDecimal(quantity); err != nil {
		return nil, err
	}
	if t.Price, err = parseDecimal(price); err != nil {
		return nil, err
	}
	if t.Fees, err = parseDecimal(fees); err != nil {
		return nil, err
	}
	if t.Date, err = time.Parse(time.RFC3339, date); err != nil {
		return nil, fmt.Errorf("invalid transaction date %q: %w", date, err)
	}
	return &t, nil
}

// GetTransactionByID retrieves a single transaction joined with its asset symbol.
func GetTransactionByID(db *sql.DB, id string) (*Transaction, error) {
	return scanTransaction(db.QueryRow(transactionSelect+` WHERE t.id = ?`, id))
}

// ListTransactionsByPortfolio returns the complete transaction history of a
// portfolio in chronological order. Ties on the same instant keep insertion
// order, which the fiscal matcher relies on as its tie-break.
func ListTransactionsByPortfolio(db *sql.DB, portfolioID string) ([]Transaction, error) {
	rows, err := db.Query(transactionSelect+`
	WHERE t.portfolio_id = ? ORDER BY t.date, t.created_at, t.rowid`, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

// ListTransactionsByAsset returns the chronological history for one asset
// within a portfolio. Used by the position recalculation.
func ListTransactionsByAsset(db *sql.DB, portfolioID, assetID string) ([]Transaction, error) {
	rows, err := db.Query(transactionSelect+`
	WHERE t.portfolio_id = ? AND t.asset_id = ? ORDER BY t.date, t.created_at, t.rowid`,
		portfolioID, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

// ListAssetIDsByPortfolio returns the distinct assets referenced by a
// portfolio's transactions.
func ListAssetIDsByPortfolio(db *sql.DB, portfolioID string) ([]string, error) {
	rows, err := db.Query(`SELECT DISTINCT asset_id FROM transactions WHERE portfolio_id = ?`, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
