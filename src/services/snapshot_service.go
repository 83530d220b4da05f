package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Mlocoes/BolsaV2/src/database"
	"github.com/Mlocoes/BolsaV2/src/logger"
	"github.com/Mlocoes/BolsaV2/src/models"
	"github.com/Mlocoes/BolsaV2/src/utils"
)

var hundred = decimal.NewFromInt(100)

type snapshotServiceImpl struct {
	quoteService QuoteService
}

// NewSnapshotService creates the valuation/snapshot service.
func NewSnapshotService(quoteService QuoteService) SnapshotService {
	return &snapshotServiceImpl{quoteService: quoteService}
}

// CaptureSnapshot values every position of the portfolio at the latest
// stored closing price (falling back to the average cost of positions
// without quotes) and upserts the snapshot for the given day.
func (s *snapshotServiceImpl) CaptureSnapshot(portfolioID string, day time.Time) (*models.Snapshot, error) {
	positions, err := models.ListPositionsByPortfolio(database.DB, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("loading positions for portfolio %s: %w", portfolioID, err)
	}

	invested := decimal.Zero
	marketValue := decimal.Zero
	for _, p := range positions {
		cost := p.Quantity.Mul(p.AveragePrice)
		invested = invested.Add(cost)
		if close, ok := s.quoteService.LatestClose(p.AssetID); ok {
			marketValue = marketValue.Add(p.Quantity.Mul(close))
		} else {
			marketValue = marketValue.Add(cost)
		}
	}

	pnl := marketValue.Sub(invested)
	pct := decimal.Zero
	if invested.IsPositive() {
		pct = pnl.Div(invested).Mul(hundred)
	}

	snap := &models.Snapshot{
		PortfolioID: portfolioID,
		Date:        utils.FormatDay(day),
		Invested:    invested,
		MarketValue: marketValue,
		PnLAbsolute: pnl,
		PnLPercent:  pct,
	}
	if err := models.UpsertSnapshot(database.DB, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// GetHistory returns the stored snapshots of a portfolio, optionally bounded
// by startDate/endDate (YYYY-MM-DD, inclusive).
func (s *snapshotServiceImpl) GetHistory(portfolioID, startDate, endDate string) ([]models.Snapshot, error) {
	return models.ListSnapshots(database.DB, portfolioID, startDate, endDate)
}

// StartScheduler captures a snapshot of every portfolio on each tick until
// the context is cancelled.
func (s *snapshotServiceImpl) StartScheduler(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		logger.L.Info("Snapshot scheduler started", "interval", interval.String())
		for {
			select {
			case <-ctx.Done():
				logger.L.Info("Snapshot scheduler stopped")
				return
			case <-ticker.C:
				s.captureAll()
			}
		}
	}()
}

func (s *snapshotServiceImpl) captureAll() {
	portfolios, err := models.ListAllPortfolios(database.DB)
	if err != nil {
		logger.L.Error("Scheduled snapshot run failed to list portfolios", "error", err)
		return
	}
	now := time.Now().UTC()
	for _, p := range portfolios {
		if _, err := s.CaptureSnapshot(p.ID, now); err != nil {
			logger.L.Error("Scheduled snapshot failed", "portfolioID", p.ID, "error", err)
		}
	}
	logger.L.Debug("Scheduled snapshot run complete", "portfolios", len(portfolios))
}
