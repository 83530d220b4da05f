package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Mlocoes/BolsaV2/src/database"
	"github.com/Mlocoes/BolsaV2/src/logger"
	"github.com/Mlocoes/BolsaV2/src/models"
	"github.com/Mlocoes/BolsaV2/src/security/validation"
	"github.com/Mlocoes/BolsaV2/src/services"
	"github.com/Mlocoes/BolsaV2/src/utils"
)

type TransactionHandler struct {
	positionService services.PositionService
	fiscalService   services.FiscalService
}

func NewTransactionHandler(positionService services.PositionService, fiscalService services.FiscalService) *TransactionHandler {
	return &TransactionHandler{
		positionService: positionService,
		fiscalService:   fiscalService,
	}
}

type transactionRequest struct {
	Symbol   string          `json:"symbol"`
	Type     string          `json:"type"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Fees     decimal.Decimal `json:"fees"`
	Currency string          `json:"currency"`
	Notes    string          `json:"notes"`
	Date     string          `json:"date"`
}

// toTransaction resolves the symbol to an asset (creating it if unknown)
// and builds a validated transaction. Dates accept both calendar days and
// RFC 3339 timestamps.
func (req *transactionRequest) toTransaction(portfolioID string) (*models.Transaction, error) {
	symbol, err := validation.NormalizeSymbol(req.Symbol)
	if err != nil {
		return nil, err
	}
	asset, err := models.GetOrCreateAssetBySymbol(database.DB, symbol)
	if err != nil {
		return nil, err
	}

	date, err := utils.ParseDay(req.Date)
	if err != nil {
		if date, err = time.Parse(time.RFC3339, req.Date); err != nil {
			return nil, err
		}
	}

	t := &models.Transaction{
		PortfolioID: portfolioID,
		AssetID:     asset.ID,
		Symbol:      asset.Symbol,
		Type:        req.Type,
		Quantity:    req.Quantity,
		Price:       req.Price,
		Fees:        req.Fees,
		Currency:    req.Currency,
		Notes:       req.Notes,
		Date:        date,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// refresh rebuilds the affected position and drops the cached fiscal ledger
// after any transaction mutation.
func (h *TransactionHandler) refresh(portfolioID, assetID string) {
	if err := h.positionService.RecalculatePosition(portfolioID, assetID); err != nil {
		logger.L.Error("Failed to recalculate position", "portfolioID", portfolioID, "assetID", assetID, "error", err)
	}
	h.fiscalService.InvalidatePortfolio(portfolioID)
}

// HandleListTransactions returns the full transaction history of a
// portfolio, oldest first.
func (h *TransactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	portfolio, ok := ownedPortfolio(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	transactions, err := models.ListTransactionsByPortfolio(database.DB, portfolio.ID)
	if err != nil {
		logger.L.Error("Failed to list transactions", "portfolioID", portfolio.ID, "error", err)
		utils.SendJSONError(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}

	if etag, err := utils.GenerateETag(transactions); err == nil {
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}
	utils.SendJSON(w, transactions, http.StatusOK)
}

// HandleCreateTransaction records a new transaction in a portfolio.
func (h *TransactionHandler) HandleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	portfolio, ok := ownedPortfolio(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	t, err := req.toTransaction(portfolio.ID)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := models.InsertTransaction(database.DB, t); err != nil {
		logger.L.Error("Failed to insert transaction", "portfolioID", portfolio.ID, "error", err)
		utils.SendJSONError(w, "Failed to create transaction", http.StatusInternalServerError)
		return
	}

	h.refresh(portfolio.ID, t.AssetID)
	logger.L.Info("Transaction created", "transactionID", t.ID, "portfolioID", portfolio.ID, "type", t.Type)
	utils.SendJSON(w, t, http.StatusCreated)
}

// loadOwnedTransaction resolves a transaction id and checks that its
// portfolio belongs to the caller.
func (h *TransactionHandler) loadOwnedTransaction(w http.ResponseWriter, r *http.Request) (*models.Transaction, bool) {
	transaction, err := models.GetTransactionByID(database.DB, r.PathValue("id"))
	if err == models.ErrNotFound {
		utils.SendJSONError(w, "Transaction not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		logger.L.Error("Failed to load transaction", "transactionID", r.PathValue("id"), "error", err)
		utils.SendJSONError(w, "Failed to load transaction", http.StatusInternalServerError)
		return nil, false
	}
	if _, ok := ownedPortfolio(w, r, transaction.PortfolioID); !ok {
		return nil, false
	}
	return transaction, true
}

// HandleUpdateTransaction replaces the mutable fields of a transaction and
// rebuilds the positions of both the old and the new asset.
func (h *TransactionHandler) HandleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadOwnedTransaction(w, r)
	if !ok {
		return
	}
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	updated, err := req.toTransaction(existing.PortfolioID)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	updated.ID = existing.ID
	if err := models.UpdateTransaction(database.DB, updated); err != nil {
		logger.L.Error("Failed to update transaction", "transactionID", existing.ID, "error", err)
		utils.SendJSONError(w, "Failed to update transaction", http.StatusInternalServerError)
		return
	}

	if existing.AssetID != updated.AssetID {
		h.refresh(existing.PortfolioID, existing.AssetID)
	}
	h.refresh(existing.PortfolioID, updated.AssetID)
	utils.SendJSON(w, updated, http.StatusOK)
}

// HandleDeleteTransaction removes a transaction.
func (h *TransactionHandler) HandleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadOwnedTransaction(w, r)
	if !ok {
		return
	}
	if err := models.DeleteTransaction(database.DB, existing.ID); err != nil {
		logger.L.Error("Failed to delete transaction", "transactionID", existing.ID, "error", err)
		utils.SendJSONError(w, "Failed to delete transaction", http.StatusInternalServerError)
		return
	}
	h.refresh(existing.PortfolioID, existing.AssetID)
	logger.L.Info("Transaction deleted", "transactionID", existing.ID)
	w.WriteHeader(http.StatusNoContent)
}
