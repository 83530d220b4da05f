package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Mlocoes/BolsaV2/src/database"
	"github.com/Mlocoes/BolsaV2/src/models"
)

type positionServiceImpl struct{}

// NewPositionService creates the position recalculation service.
func NewPositionService() PositionService {
	return &positionServiceImpl{}
}

// RecalculatePosition replays the full transaction history of one asset and
// upserts the resulting weighted-average position. Buys and deposits add
// quantity and cost; sells and withdrawals remove a proportional share of
// the accumulated cost, so the average price of the remainder is unchanged.
// A position that reaches zero (or below) is deleted.
func (s *positionServiceImpl) RecalculatePosition(portfolioID, assetID string) error {
	txs, err := models.ListTransactionsByAsset(database.DB, portfolioID, assetID)
	if err != nil {
		return fmt.Errorf("loading transactions for asset %s: %w", assetID, err)
	}

	quantity := decimal.Zero
	totalCost := decimal.Zero

	for _, tx := range txs {
		switch tx.Type {
		case models.TransactionBuy, models.TransactionDeposit:
			quantity = quantity.Add(tx.Quantity)
			totalCost = totalCost.Add(tx.Quantity.Mul(tx.Price))
		case models.TransactionSell, models.TransactionWithdrawal:
			if quantity.IsPositive() {
				costOfSold := totalCost.Mul(tx.Quantity).Div(quantity)
				totalCost = totalCost.Sub(costOfSold)
			}
			quantity = quantity.Sub(tx.Quantity)
		}
	}

	if !quantity.IsPositive() {
		return models.DeletePosition(database.DB, portfolioID, assetID)
	}

	position := &models.Position{
		PortfolioID:  portfolioID,
		AssetID:      assetID,
		Quantity:     quantity,
		AveragePrice: totalCost.Div(quantity),
	}
	return models.UpsertPosition(database.DB, position)
}

// RecalculatePortfolio rebuilds every position of a portfolio and removes
// positions whose asset no longer has any transactions.
func (s *positionServiceImpl) RecalculatePortfolio(portfolioID string) error {
	assetIDs, err := models.ListAssetIDsByPortfolio(database.DB, portfolioID)
	if err != nil {
		return fmt.Errorf("listing assets for portfolio %s: %w", portfolioID, err)
	}

	active := make(map[string]bool, len(assetIDs))
	for _, assetID := range assetIDs {
		active[assetID] = true
		if err := s.RecalculatePosition(portfolioID, assetID); err != nil {
			return err
		}
	}

	positions, err := models.ListPositionsByPortfolio(database.DB, portfolioID)
	if err != nil {
		return err
	}
	for _, p := range positions {
		if !active[p.AssetID] {
			if err := models.DeletePosition(database.DB, portfolioID, p.AssetID); err != nil {
				return err
			}
		}
	}
	return nil
}
