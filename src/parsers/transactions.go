// Package parsers reads and writes the CSV documents accepted by the
// import/export endpoints.
package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Mlocoes/BolsaV2/src/models"
	"github.com/Mlocoes/BolsaV2/src/security/validation"
)

// TransactionRecord is one parsed row of a transaction CSV, before assets
// are resolved against the database.
type TransactionRecord struct {
	Date     time.Time
	Type     string
	Symbol   string
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Fees     decimal.Decimal
	Currency string
	Notes    string
}

// Exports from older versions of the app and hand-made spreadsheets use a
// mix of Spanish and English headers; all of these map to canonical columns.
var transactionHeaderAliases = map[string]string{
	"date":         "date",
	"fecha":        "date",
	"type":         "type",
	"tipo":         "type",
	"operacion":    "type",
	"symbol":       "symbol",
	"asset_symbol": "symbol",
	"simbolo":      "symbol",
	"ticker":       "symbol",
	"activo":       "symbol",
	"quantity":     "quantity",
	"cantidad":     "quantity",
	"shares":       "quantity",
	"price":        "price",
	"precio":       "price",
	"fees":         "fees",
	"fee":          "fees",
	"comision":     "fees",
	"commission":   "fees",
	"currency":     "currency",
	"moneda":       "currency",
	"notes":        "notes",
	"notas":        "notes",
}

var transactionTypeAliases = map[string]string{
	"buy":        models.TransactionBuy,
	"compra":     models.TransactionBuy,
	"sell":       models.TransactionSell,
	"venta":      models.TransactionSell,
	"dividend":   models.TransactionDividend,
	"dividendo":  models.TransactionDividend,
	"deposit":    models.TransactionDeposit,
	"deposito":   models.TransactionDeposit,
	"withdrawal": models.TransactionWithdrawal,
	"retiro":     models.TransactionWithdrawal,
	"retirada":   models.TransactionWithdrawal,
}

var transactionDateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"02-01-2006",
}

// ParseTransactionsCSV reads a transaction CSV with header normalization.
// Required columns: date, type, symbol, quantity, price. Optional: fees,
// currency, notes. Rows are returned in file order.
func ParseTransactionsCSV(file io.Reader) ([]TransactionRecord, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make(map[string]int)
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if canonical, ok := transactionHeaderAliases[key]; ok {
			if _, dup := columns[canonical]; !dup {
				columns[canonical] = i
			}
		}
	}

	var missing []string
	for _, required := range []string{"date", "type", "symbol", "quantity", "price"} {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns (or unrecognized headers): %s; found: %s",
			strings.Join(missing, ", "), strings.Join(header, ", "))
	}

	var records []TransactionRecord
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		field := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		if isEmptyRow(row) {
			continue
		}

		date, err := parseFlexibleDate(field("date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		txType, ok := transactionTypeAliases[strings.ToLower(field("type"))]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown transaction type %q", line, field("type"))
		}

		quantity, err := parseFlexibleDecimal(field("quantity"))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid quantity: %w", line, err)
		}
		price, err := parseFlexibleDecimal(field("price"))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid price: %w", line, err)
		}

		fees := decimal.Zero
		if raw := field("fees"); raw != "" {
			if fees, err = parseFlexibleDecimal(raw); err != nil {
				return nil, fmt.Errorf("line %d: invalid fees: %w", line, err)
			}
		}

		symbol := strings.ToUpper(field("symbol"))
		if symbol == "" {
			return nil, fmt.Errorf("line %d: empty symbol", line)
		}

		records = append(records, TransactionRecord{
			Date:     date,
			Type:     txType,
			Symbol:   symbol,
			Quantity: quantity,
			Price:    price,
			Fees:     fees,
			Currency: strings.ToUpper(field("currency")),
			Notes:    validation.StripUnprintable(field("notes")),
		})
	}

	return records, nil
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseFlexibleDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, format := range transactionDateFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// parseFlexibleDecimal accepts both dot and Spanish comma decimal notation
// ("1.234,56" and "1,234.56" and plain "1234.56").
func parseFlexibleDecimal(value string) (decimal.Decimal, error) {
	normalized := strings.ReplaceAll(value, " ", "")
	hasComma := strings.Contains(normalized, ",")
	hasDot := strings.Contains(normalized, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(normalized, ",") > strings.LastIndex(normalized, ".") {
			// 1.234,56: dot is the thousands separator
			normalized = strings.ReplaceAll(normalized, ".", "")
			normalized = strings.ReplaceAll(normalized, ",", ".")
		} else {
			// 1,234.56: comma is the thousands separator
			normalized = strings.ReplaceAll(normalized, ",", "")
		}
	case hasComma:
		normalized = strings.ReplaceAll(normalized, ",", ".")
	}
	return decimal.NewFromString(normalized)
}
