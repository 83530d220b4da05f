package models

import "github.com/shopspring/decimal"

// FiscalResultItem is one matched buy/sell pairing (or partial pairing)
// produced by the FIFO matcher. Dates are calendar dates (2006-01-02).
type FiscalResultItem struct {
	Symbol    string          `json:"symbol"`
	DateSell  string          `json:"date_sell"`
	DateBuy   string          `json:"date_buy"`
	Quantity  decimal.Decimal `json:"quantity"`
	PriceSell decimal.Decimal `json:"price_sell"`
	PriceBuy  decimal.Decimal `json:"price_buy"`
	Result    decimal.Decimal `json:"result"`
}

// FiscalResult is the aggregate realized gain/loss ledger for one portfolio
// over a requested date window.
type FiscalResult struct {
	Items       []FiscalResultItem `json:"items"`
	TotalResult decimal.Decimal    `json:"total_result"`
}
