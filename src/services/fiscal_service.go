package services

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/Mlocoes/BolsaV2/src/database"
	"github.com/Mlocoes/BolsaV2/src/fiscal"
	"github.com/Mlocoes/BolsaV2/src/logger"
	"github.com/Mlocoes/BolsaV2/src/models"
)

const ckFiscalLedger = "fiscal_ledger_portfolio_%s"

type fiscalServiceImpl struct {
	matcher     *fiscal.Matcher
	reportCache *cache.Cache
}

// NewFiscalService creates the realized-results service backed by the
// shared report cache.
func NewFiscalService(reportCache *cache.Cache) FiscalService {
	return &fiscalServiceImpl{
		matcher:     fiscal.NewMatcher(),
		reportCache: reportCache,
	}
}

// GetFiscalResult returns the FIFO-matched sale results of a portfolio,
// restricted to the optional [startDate, endDate] window. Matching always
// runs over the full transaction history; the window only filters which
// matched items are reported.
func (s *fiscalServiceImpl) GetFiscalResult(portfolioID string, startDate, endDate *time.Time) (*models.FiscalResult, error) {
	if startDate != nil && endDate != nil && startDate.After(*endDate) {
		return nil, fiscal.ErrInvalidDateRange
	}

	key := fmt.Sprintf(ckFiscalLedger, portfolioID)
	if cached, found := s.reportCache.Get(key); found {
		if items, ok := cached.([]models.FiscalResultItem); ok {
			logger.L.Debug("Returning fiscal ledger from cache", "portfolioID", portfolioID)
			return fiscal.FilterItems(items, startDate, endDate)
		}
	}

	txs, err := models.ListTransactionsByPortfolio(database.DB, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("loading transactions for portfolio %s: %w", portfolioID, err)
	}

	full, err := s.matcher.Compute(txs, nil, nil)
	if err != nil {
		return nil, err
	}

	s.reportCache.Set(key, full.Items, cache.DefaultExpiration)
	logger.L.Debug("Computed and cached fiscal ledger", "portfolioID", portfolioID, "items", len(full.Items))

	return fiscal.FilterItems(full.Items, startDate, endDate)
}

// InvalidatePortfolio drops the cached ledger after any transaction mutation.
func (s *fiscalServiceImpl) InvalidatePortfolio(portfolioID string) {
	s.reportCache.Delete(fmt.Sprintf(ckFiscalLedger, portfolioID))
}
