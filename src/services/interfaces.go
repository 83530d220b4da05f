package services

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Mlocoes/BolsaV2/src/models"
)

var (
	// ErrImportFailed wraps parse-level failures of uploaded documents.
	ErrImportFailed = errors.New("import failed")
	// ErrQuoteFetchFailed wraps upstream quote provider failures.
	ErrQuoteFetchFailed = errors.New("quote fetch failed")
)

// FiscalService computes the realized gain/loss ledger of a portfolio,
// caching the full (unfiltered) ledger between transaction mutations.
type FiscalService interface {
	GetFiscalResult(portfolioID string, startDate, endDate *time.Time) (*models.FiscalResult, error)
	InvalidatePortfolio(portfolioID string)
}

// PositionService maintains the derived weighted-average positions.
type PositionService interface {
	RecalculatePosition(portfolioID, assetID string) error
	RecalculatePortfolio(portfolioID string) error
}

// QuoteService stores daily quotes and refreshes realtime prices.
type QuoteService interface {
	SaveQuote(q *models.Quote) error
	GetQuotes(symbol, startDate, endDate string) ([]models.Quote, error)
	LatestClose(assetID string) (decimal.Decimal, bool)
	RefreshRealtime(symbol string) (*models.Quote, error)
}

// SnapshotService values portfolios and keeps their daily history.
type SnapshotService interface {
	CaptureSnapshot(portfolioID string, day time.Time) (*models.Snapshot, error)
	GetHistory(portfolioID, startDate, endDate string) ([]models.Snapshot, error)
	StartScheduler(ctx context.Context, interval time.Duration)
}

// ImportSummary reports the outcome of a CSV import.
type ImportSummary struct {
	RowsImported  int `json:"rows_imported"`
	AssetsCreated int `json:"assets_created"`
}

// ImportExportService moves transactions and quotes in and out as CSV.
type ImportExportService interface {
	ImportTransactionsCSV(portfolioID string, file io.Reader) (*ImportSummary, error)
	ExportTransactionsCSV(portfolioID string, w io.Writer) error
	ImportQuotesCSV(file io.Reader) (*ImportSummary, error)
}

// EmailService sends transactional mail.
type EmailService interface {
	SendPasswordResetEmail(toEmail, username, token string) error
}
