package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Mlocoes/BolsaV2/src/database"
	"github.com/Mlocoes/BolsaV2/src/logger"
	"github.com/Mlocoes/BolsaV2/src/models"
	"github.com/Mlocoes/BolsaV2/src/security/validation"
	"github.com/Mlocoes/BolsaV2/src/services"
	"github.com/Mlocoes/BolsaV2/src/utils"
)

type QuoteHandler struct {
	quoteService services.QuoteService
}

func NewQuoteHandler(quoteService services.QuoteService) *QuoteHandler {
	return &QuoteHandler{quoteService: quoteService}
}

// HandleListQuotes returns stored daily quotes for a symbol, optionally
// bounded by start_date/end_date (YYYY-MM-DD).
func (h *QuoteHandler) HandleListQuotes(w http.ResponseWriter, r *http.Request) {
	symbol, err := validation.NormalizeSymbol(r.URL.Query().Get("symbol"))
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	quotes, err := h.quoteService.GetQuotes(symbol, r.URL.Query().Get("start_date"), r.URL.Query().Get("end_date"))
	if err == models.ErrNotFound {
		utils.SendJSONError(w, "Unknown symbol", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.L.Error("Failed to list quotes", "symbol", symbol, "error", err)
		utils.SendJSONError(w, "Failed to list quotes", http.StatusInternalServerError)
		return
	}
	if quotes == nil {
		quotes = []models.Quote{}
	}
	utils.SendJSON(w, quotes, http.StatusOK)
}

type quoteRequest struct {
	Symbol string          `json:"symbol"`
	Date   string          `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
	Source string          `json:"source"`
}

// HandleUpsertQuote stores a single daily quote, creating the asset if the
// symbol is new.
func (h *QuoteHandler) HandleUpsertQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	symbol, err := validation.NormalizeSymbol(req.Symbol)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := utils.ParseDay(req.Date); err != nil {
		utils.SendJSONError(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	asset, err := models.GetOrCreateAssetBySymbol(database.DB, symbol)
	if err != nil {
		logger.L.Error("Failed to resolve asset for quote", "symbol", symbol, "error", err)
		utils.SendJSONError(w, "Failed to store quote", http.StatusInternalServerError)
		return
	}

	source := req.Source
	if source == "" {
		source = "manual"
	}
	q := &models.Quote{
		AssetID: asset.ID,
		Symbol:  asset.Symbol,
		Date:    req.Date,
		Open:    req.Open,
		High:    req.High,
		Low:     req.Low,
		Close:   req.Close,
		Volume:  req.Volume,
		Source:  source,
	}
	if err := h.quoteService.SaveQuote(q); err != nil {
		logger.L.Error("Failed to store quote", "symbol", symbol, "date", req.Date, "error", err)
		utils.SendJSONError(w, "Failed to store quote", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, q, http.StatusCreated)
}

// HandleRefreshQuote fetches the current market price for a symbol and
// stores it as today's quote.
func (h *QuoteHandler) HandleRefreshQuote(w http.ResponseWriter, r *http.Request) {
	symbol, err := validation.NormalizeSymbol(r.URL.Query().Get("symbol"))
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	q, err := h.quoteService.RefreshRealtime(symbol)
	if err == models.ErrNotFound {
		utils.SendJSONError(w, "Unknown symbol", http.StatusNotFound)
		return
	}
	if errors.Is(err, services.ErrQuoteFetchFailed) {
		logger.L.Warn("Realtime quote fetch failed", "symbol", symbol, "error", err)
		utils.SendJSONError(w, "Quote provider unavailable", http.StatusBadGateway)
		return
	}
	if err != nil {
		logger.L.Error("Failed to refresh quote", "symbol", symbol, "error", err)
		utils.SendJSONError(w, "Failed to refresh quote", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, q, http.StatusOK)
}
