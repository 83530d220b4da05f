package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/Mlocoes/BolsaV2/src/fiscal"
	"github.com/Mlocoes/BolsaV2/src/logger"
	"github.com/Mlocoes/BolsaV2/src/services"
	"github.com/Mlocoes/BolsaV2/src/utils"
)

type FiscalHandler struct {
	fiscalService services.FiscalService
}

func NewFiscalHandler(fiscalService services.FiscalService) *FiscalHandler {
	return &FiscalHandler{fiscalService: fiscalService}
}

// parseDayParam reads an optional YYYY-MM-DD query parameter.
func parseDayParam(r *http.Request, name string) (*time.Time, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return nil, nil
	}
	day, err := utils.ParseDay(value)
	if err != nil {
		return nil, err
	}
	return &day, nil
}

// HandleGetFiscalResult returns the realized gain/loss rows of a portfolio,
// optionally restricted to a date window. Matching always runs over the full
// history; an oversold asset fails the whole report with 422.
func (h *FiscalHandler) HandleGetFiscalResult(w http.ResponseWriter, r *http.Request) {
	portfolio, ok := ownedPortfolio(w, r, r.PathValue("portfolioID"))
	if !ok {
		return
	}

	startDate, err := parseDayParam(r, "start_date")
	if err != nil {
		utils.SendJSONError(w, "Invalid start_date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	endDate, err := parseDayParam(r, "end_date")
	if err != nil {
		utils.SendJSONError(w, "Invalid end_date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	result, err := h.fiscalService.GetFiscalResult(portfolio.ID, startDate, endDate)
	if err != nil {
		if errors.Is(err, fiscal.ErrInvalidDateRange) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		var insufficient *fiscal.InsufficientLotsError
		if errors.As(err, &insufficient) {
			utils.SendJSONError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		logger.L.Error("Failed to compute fiscal result", "portfolioID", portfolio.ID, "error", err)
		utils.SendJSONError(w, "Failed to compute fiscal result", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, result, http.StatusOK)
}
