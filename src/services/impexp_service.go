package services

import (
	"fmt"
	"io"

	"github.com/Mlocoes/BolsaV2/src/database"
	"github.com/Mlocoes/BolsaV2/src/logger"
	"github.com/Mlocoes/BolsaV2/src/models"
	"github.com/Mlocoes/BolsaV2/src/parsers"
)

type impexpServiceImpl struct {
	positionService PositionService
	fiscalService   FiscalService
}

// NewImportExportService creates the CSV import/export service.
func NewImportExportService(positionService PositionService, fiscalService FiscalService) ImportExportService {
	return &impexpServiceImpl{
		positionService: positionService,
		fiscalService:   fiscalService,
	}
}

// ImportTransactionsCSV parses an uploaded transaction CSV, inserts every
// row into the portfolio (creating unknown assets on the fly), then rebuilds
// the affected positions and drops the cached fiscal ledger. The whole file
// is parsed and validated up front, so a malformed or invalid row rejects
// the import before any insert happens.
func (s *impexpServiceImpl) ImportTransactionsCSV(portfolioID string, file io.Reader) (*ImportSummary, error) {
	records, err := parsers.ParseTransactionsCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportFailed, err)
	}

	transactions := make([]*models.Transaction, 0, len(records))
	for i, rec := range records {
		t := &models.Transaction{
			PortfolioID: portfolioID,
			Type:        rec.Type,
			Quantity:    rec.Quantity,
			Price:       rec.Price,
			Fees:        rec.Fees,
			Currency:    rec.Currency,
			Notes:       rec.Notes,
			Date:        rec.Date,
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrImportFailed, i+1, err)
		}
		transactions = append(transactions, t)
	}

	summary := &ImportSummary{}
	affected := make(map[string]bool)
	for i, rec := range records {
		asset, err := models.GetAssetBySymbol(database.DB, rec.Symbol)
		if err == models.ErrNotFound {
			asset, err = models.GetOrCreateAssetBySymbol(database.DB, rec.Symbol)
			if err == nil {
				summary.AssetsCreated++
			}
		}
		if err != nil {
			return nil, fmt.Errorf("resolving asset %q (row %d): %w", rec.Symbol, i+1, err)
		}

		t := transactions[i]
		t.AssetID = asset.ID
		if err := models.InsertTransaction(database.DB, t); err != nil {
			return nil, fmt.Errorf("inserting row %d: %w", i+1, err)
		}
		affected[asset.ID] = true
		summary.RowsImported++
	}

	for assetID := range affected {
		if err := s.positionService.RecalculatePosition(portfolioID, assetID); err != nil {
			return nil, err
		}
	}
	s.fiscalService.InvalidatePortfolio(portfolioID)

	logger.L.Info("Imported transactions",
		"portfolioID", portfolioID,
		"rows", summary.RowsImported,
		"assetsCreated", summary.AssetsCreated)
	return summary, nil
}

// ExportTransactionsCSV streams the full transaction history of a portfolio
// as CSV, oldest first.
func (s *impexpServiceImpl) ExportTransactionsCSV(portfolioID string, w io.Writer) error {
	txs, err := models.ListTransactionsByPortfolio(database.DB, portfolioID)
	if err != nil {
		return fmt.Errorf("loading transactions for portfolio %s: %w", portfolioID, err)
	}
	return parsers.WriteTransactionsCSV(w, txs)
}

// ImportQuotesCSV parses an uploaded quote CSV and upserts each row,
// creating unknown assets on the fly.
func (s *impexpServiceImpl) ImportQuotesCSV(file io.Reader) (*ImportSummary, error) {
	records, err := parsers.ParseQuotesCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportFailed, err)
	}

	summary := &ImportSummary{}
	for i, rec := range records {
		asset, err := models.GetAssetBySymbol(database.DB, rec.Symbol)
		if err == models.ErrNotFound {
			asset, err = models.GetOrCreateAssetBySymbol(database.DB, rec.Symbol)
			if err == nil {
				summary.AssetsCreated++
			}
		}
		if err != nil {
			return nil, fmt.Errorf("resolving asset %q (row %d): %w", rec.Symbol, i+1, err)
		}

		q := &models.Quote{
			AssetID: asset.ID,
			Symbol:  asset.Symbol,
			Date:    rec.Date,
			Open:    rec.Open,
			High:    rec.High,
			Low:     rec.Low,
			Close:   rec.Close,
			Volume:  rec.Volume,
			Source:  "import",
		}
		if err := models.UpsertQuote(database.DB, q); err != nil {
			return nil, fmt.Errorf("storing quote row %d: %w", i+1, err)
		}
		summary.RowsImported++
	}

	logger.L.Info("Imported quotes", "rows", summary.RowsImported, "assetsCreated", summary.AssetsCreated)
	return summary, nil
}
