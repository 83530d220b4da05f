package parsers

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mlocoes/BolsaV2/src/models"
)

func TestParseTransactionsCSV_EnglishHeaders(t *testing.T) {
	csvData := `date,type,symbol,quantity,price,fees,currency,notes
2023-01-15,buy,AAPL,10,150.25,1.50,USD,first lot
2023-02-20,sell,aapl,5,160,0,USD,
`
	records, err := ParseTransactionsCSV(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, models.TransactionBuy, records[0].Type)
	assert.Equal(t, "AAPL", records[0].Symbol)
	assert.True(t, records[0].Quantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, records[0].Price.Equal(decimal.RequireFromString("150.25")))
	assert.True(t, records[0].Fees.Equal(decimal.RequireFromString("1.5")))
	assert.Equal(t, "first lot", records[0].Notes)
	assert.Equal(t, time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), records[0].Date)

	assert.Equal(t, models.TransactionSell, records[1].Type)
	assert.Equal(t, "AAPL", records[1].Symbol)
	assert.True(t, records[1].Fees.IsZero())
}

func TestParseTransactionsCSV_SpanishHeadersAndDecimals(t *testing.T) {
	csvData := `fecha,tipo,simbolo,cantidad,precio,comision
15/01/2023,compra,SAN,100,"3,45","1,20"
20/02/2023,venta,SAN,50,"3,80",0
03/03/2023,dividendo,SAN,100,"0,10",
`
	records, err := ParseTransactionsCSV(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, models.TransactionBuy, records[0].Type)
	assert.Equal(t, "SAN", records[0].Symbol)
	assert.True(t, records[0].Price.Equal(decimal.RequireFromString("3.45")), "got %s", records[0].Price)
	assert.True(t, records[0].Fees.Equal(decimal.RequireFromString("1.2")))
	assert.Equal(t, time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), records[0].Date)

	assert.Equal(t, models.TransactionSell, records[1].Type)
	assert.Equal(t, models.TransactionDividend, records[2].Type)
}

func TestParseTransactionsCSV_ThousandsSeparators(t *testing.T) {
	csvData := `date,type,symbol,quantity,price
2023-01-15,buy,BTC,"1.234,56","25.000,75"
2023-01-16,buy,ETH,"1,234.56","2,000.75"
`
	records, err := ParseTransactionsCSV(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.True(t, records[0].Quantity.Equal(decimal.RequireFromString("1234.56")), "got %s", records[0].Quantity)
	assert.True(t, records[0].Price.Equal(decimal.RequireFromString("25000.75")))
	assert.True(t, records[1].Quantity.Equal(decimal.RequireFromString("1234.56")))
	assert.True(t, records[1].Price.Equal(decimal.RequireFromString("2000.75")))
}

func TestParseTransactionsCSV_SkipsEmptyRows(t *testing.T) {
	csvData := `date,type,symbol,quantity,price
2023-01-15,buy,AAPL,10,150

2023-01-16,buy,MSFT,5,250
`
	records, err := ParseTransactionsCSV(strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestParseTransactionsCSV_MissingRequiredColumn(t *testing.T) {
	csvData := `date,type,symbol,price
2023-01-15,buy,AAPL,150
`
	_, err := ParseTransactionsCSV(strings.NewReader(csvData))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantity")
}

func TestParseTransactionsCSV_UnknownType(t *testing.T) {
	csvData := `date,type,symbol,quantity,price
2023-01-15,short,AAPL,10,150
`
	_, err := ParseTransactionsCSV(strings.NewReader(csvData))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Contains(t, err.Error(), "unknown transaction type")
}

func TestParseTransactionsCSV_BadDateReportsLine(t *testing.T) {
	csvData := `date,type,symbol,quantity,price
2023-01-15,buy,AAPL,10,150
not-a-date,buy,AAPL,10,150
`
	_, err := ParseTransactionsCSV(strings.NewReader(csvData))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestWriteTransactionsCSV_RoundTrip(t *testing.T) {
	transactions := []models.Transaction{
		{
			Symbol:   "AAPL",
			Type:     models.TransactionBuy,
			Quantity: decimal.NewFromInt(10),
			Price:    decimal.RequireFromString("150.25"),
			Fees:     decimal.RequireFromString("1.5"),
			Currency: "USD",
			Notes:    "initial purchase",
			Date:     time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			Symbol:   "MSFT",
			Type:     models.TransactionSell,
			Quantity: decimal.NewFromInt(3),
			Price:    decimal.RequireFromString("250.10"),
			Fees:     decimal.Zero,
			Currency: "USD",
			Date:     time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTransactionsCSV(&buf, transactions))

	records, err := ParseTransactionsCSV(&buf)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "AAPL", records[0].Symbol)
	assert.Equal(t, models.TransactionBuy, records[0].Type)
	assert.True(t, records[0].Quantity.Equal(transactions[0].Quantity))
	assert.True(t, records[0].Price.Equal(transactions[0].Price))
	assert.Equal(t, transactions[0].Date, records[0].Date)
	assert.Equal(t, "initial purchase", records[0].Notes)

	assert.Equal(t, "MSFT", records[1].Symbol)
	assert.Equal(t, models.TransactionSell, records[1].Type)
}

func TestWriteTransactionsCSV_SanitizesFormulaNotes(t *testing.T) {
	transactions := []models.Transaction{
		{
			Symbol:   "AAPL",
			Type:     models.TransactionBuy,
			Quantity: decimal.NewFromInt(1),
			Price:    decimal.NewFromInt(100),
			Currency: "USD",
			Notes:    "=SUM(A1:A9)",
			Date:     time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTransactionsCSV(&buf, transactions))
	assert.NotContains(t, buf.String(), ",=SUM")
}

func TestParseQuotesCSV(t *testing.T) {
	csvData := `symbol,date,open,high,low,close,volume
AAPL,2023-01-15,149.5,151.2,148.9,150.25,52000000
MSFT,2023-01-15,248,251,247.5,250.10,31000000
`
	records, err := ParseQuotesCSV(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "AAPL", records[0].Symbol)
	assert.Equal(t, "2023-01-15", records[0].Date)
	assert.True(t, records[0].Close.Equal(decimal.RequireFromString("150.25")))
	assert.Equal(t, int64(52000000), records[0].Volume)
}
