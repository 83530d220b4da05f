package models

import (
	"database/sql"
	"strings"

	"github.com/google/uuid"
)

// Asset types accepted by the API.
const (
	AssetTypeStock  = "stock"
	AssetTypeETF    = "etf"
	AssetTypeFund   = "fund"
	AssetTypeCrypto = "crypto"
	AssetTypeOther  = "other"
)

type Asset struct {
	ID        string `json:"id"`
	Symbol    string `json:"symbol"`
	Name      string `json:"name,omitempty"`
	AssetType string `json:"asset_type"`
	Currency  string `json:"currency"`
}

// ValidAssetType reports whether t is one of the known asset types.
func ValidAssetType(t string) bool {
	switch t {
	case AssetTypeStock, AssetTypeETF, AssetTypeFund, AssetTypeCrypto, AssetTypeOther:
		return true
	}
	return false
}

// CreateAsset inserts a new asset, assigning a fresh id.
func CreateAsset(db *sql.DB, a *Asset) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Symbol = strings.ToUpper(strings.TrimSpace(a.Symbol))
	if a.AssetType == "" {
		a.AssetType = AssetTypeStock
	}
	if a.Currency == "" {
		a.Currency = "USD"
	}
	_, err := db.Exec(`
	INSERT INTO assets (id, symbol, name, asset_type, currency)
	VALUES (?, ?, ?, ?, ?)`, a.ID, a.Symbol, a.Name, a.AssetType, a.Currency)
	return err
}

func scanAsset(row *sql.Row) (*Asset, error) {
	var a Asset
	err := row.Scan(&a.ID, &a.Symbol, &a.Name, &a.AssetType, &a.Currency)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

const assetColumns = `id, symbol, COALESCE(name, ''), asset_type, currency`

// GetAssetByID retrieves an asset by id.
func GetAssetByID(db *sql.DB, id string) (*Asset, error) {
	return scanAsset(db.QueryRow(`SELECT `+assetColumns+` FROM assets WHERE id = ?`, id))
}

// GetAssetBySymbol retrieves an asset by its ticker symbol.
func GetAssetBySymbol(db *sql.DB, symbol string) (*Asset, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	return scanAsset(db.QueryRow(`SELECT `+assetColumns+` FROM assets WHERE symbol = ?`, symbol))
}

// GetOrCreateAssetBySymbol returns the asset for symbol, creating it if unknown.
func GetOrCreateAssetBySymbol(db *sql.DB, symbol string) (*Asset, error) {
	asset, err := GetAssetBySymbol(db, symbol)
	if err == nil {
		return asset, nil
	}
	if err != ErrNotFound {
		return nil, err
	}
	asset = &Asset{Symbol: symbol}
	if err := CreateAsset(db, asset); err != nil {
		return nil, err
	}
	return asset, nil
}

// ListAssets returns all known assets ordered by symbol.
func ListAssets(db *sql.DB) ([]Asset, error) {
	rows, err := db.Query(`SELECT ` + assetColumns + ` FROM assets ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.ID, &a.Symbol, &a.Name, &a.AssetType, &a.Currency); err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}
