package models

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Quote is one daily OHLCV bar for an asset. Date is a calendar date
// (2006-01-02); there is at most one quote per asset per day.
type Quote struct {
	ID      string          `json:"id"`
	AssetID string          `json:"asset_id"`
	Symbol  string          `json:"symbol"`
	Date    string          `json:"date"`
	Open    decimal.Decimal `json:"open"`
	High    decimal.Decimal `json:"high"`
	Low     decimal.Decimal `json:"low"`
	Close   decimal.Decimal `json:"close"`
	Volume  int64           `json:"volume"`
	Source  string          `json:"source"`
}

// UpsertQuote stores or replaces the quote for (asset, date).
func UpsertQuote(db *sql.DB, q *Quote) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.Source == "" {
		q.Source = "manual"
	}
	_, err := db.Exec(`
	INSERT INTO quotes (id, asset_id, date, open, high, low, close, volume, source)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(asset_id, date) DO UPDATE SET
		open = excluded.open,
		high = excluded.high,
		low = excluded.low,
		close = excluded.close,
		volume = excluded.volume,
		source = excluded.source`,
		q.ID, q.AssetID, q.Date,
		q.Open.String(), q.High.String(), q.Low.String(), q.Close.String(),
		q.Volume, q.Source)
	return err
}

const quoteSelect = `
	SELECT q.id, q.asset_id, a.symbol, q.date, COALESCE(q.open, '0'), COALESCE(q.high, '0'),
	       COALESCE(q.low, '0'), q.close, COALESCE(q.volume, 0), COALESCE(q.source, 'manual')
	FROM quotes q
	JOIN assets a ON a.id = q.asset_id`

func scanQuote(scanner interface {
	Scan(dest ...interface{}) error
}) (*Quote, error) {
	var q Quote
	var open, high, low, closePrice string
	err := scanner.Scan(&q.ID, &q.AssetID, &q.Symbol, &q.Date, &open, &high, &low, &closePrice, &q.Volume, &q.Source)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if q.Open, err = parseDecimal(open); err != nil {
		return nil, err
	}
	if q.High, err = parseDecimal(high); err != nil {
		return nil, err
	}
	if q.Low, err = parseDecimal(low); err != nil {
		return nil, err
	}
	if q.Close, err = parseDecimal(closePrice); err != nil {
		return nil, err
	}
	return &q, nil
}

// ListQuotes returns the quotes for an asset, newest last, optionally bounded
// by inclusive calendar dates (empty string means unbounded).
func ListQuotes(db *sql.DB, assetID, startDate, endDate string) ([]Quote, error) {
	query := quoteSelect + ` WHERE q.asset_id = ?`
	args := []interface{}{assetID}
	if startDate != "" {
		query += ` AND q.date >= ?`
		args = append(args, startDate)
	}
	if endDate != "" {
		query += ` AND q.date <= ?`
		args = append(args, endDate)
	}
	query += ` ORDER BY q.date`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotes []Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, *q)
	}
	return quotes, rows.Err()
}

// GetLatestQuote returns the most recent quote for an asset.
func GetLatestQuote(db *sql.DB, assetID string) (*Quote, error) {
	return scanQuote(db.QueryRow(quoteSelect+`
	WHERE q.asset_id = ? ORDER BY q.date DESC LIMIT 1`, assetID))
}
