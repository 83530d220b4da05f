package parsers

import (
	"encoding/csv"
	"io"

	"github.com/Mlocoes/BolsaV2/src/models"
	"github.com/Mlocoes/BolsaV2/src/security/validation"
	"github.com/Mlocoes/BolsaV2/src/utils"
)

// WriteTransactionsCSV writes transactions in the canonical export format.
// The same file round-trips through ParseTransactionsCSV.
func WriteTransactionsCSV(w io.Writer, transactions []models.Transaction) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"date", "type", "symbol", "quantity", "price", "fees", "currency", "notes"}); err != nil {
		return err
	}

	for _, tx := range transactions {
		record := []string{
			utils.FormatDay(tx.Date),
			tx.Type,
			tx.Symbol,
			tx.Quantity.String(),
			tx.Price.String(),
			tx.Fees.String(),
			tx.Currency,
			validation.SanitizeForFormulaInjection(tx.Notes),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
