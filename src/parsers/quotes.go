package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// QuoteRecord is one parsed row of a quote CSV.
type QuoteRecord struct {
	Symbol string
	Date   string
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// ParseQuotesCSV reads a quote CSV with columns
// symbol,date,open,high,low,close[,volume]. Dates must be ISO calendar dates.
func ParseQuotesCSV(file io.Reader) ([]QuoteRecord, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make(map[string]int)
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, required := range []string{"symbol", "date", "open", "high", "low", "close"} {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	var records []QuoteRecord
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
		if isEmptyRow(row) {
			continue
		}

		field := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		record := QuoteRecord{
			Symbol: strings.ToUpper(field("symbol")),
			Date:   field("date"),
		}
		if record.Symbol == "" {
			return nil, fmt.Errorf("line %d: empty symbol", line)
		}
		if _, err := parseFlexibleDate(record.Date); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		for _, col := range []struct {
			name string
			dst  *decimal.Decimal
		}{
			{"open", &record.Open},
			{"high", &record.High},
			{"low", &record.Low},
			{"close", &record.Close},
		} {
			value, err := parseFlexibleDecimal(field(col.name))
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid %s: %w", line, col.name, err)
			}
			*col.dst = value
		}

		if raw := field("volume"); raw != "" {
			volume, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid volume: %w", line, err)
			}
			record.Volume = volume
		}

		records = append(records, record)
	}

	return records, nil
}
