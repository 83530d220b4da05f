package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Mlocoes/BolsaV2/src/database"
	"github.com/Mlocoes/BolsaV2/src/logger"
	"github.com/Mlocoes/BolsaV2/src/models"
	"github.com/Mlocoes/BolsaV2/src/utils"
)

type PortfolioHandler struct{}

func NewPortfolioHandler() *PortfolioHandler {
	return &PortfolioHandler{}
}

// ownedPortfolio loads a portfolio and verifies it belongs to the
// authenticated user. A foreign portfolio reads as not found so the
// response does not leak its existence.
func ownedPortfolio(w http.ResponseWriter, r *http.Request, portfolioID string) (*models.Portfolio, bool) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	portfolio, err := models.GetPortfolioByID(database.DB, portfolioID)
	if err == models.ErrNotFound || (err == nil && portfolio.UserID != userID) {
		utils.SendJSONError(w, "Portfolio not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		logger.L.Error("Failed to load portfolio", "portfolioID", portfolioID, "error", err)
		utils.SendJSONError(w, "Failed to load portfolio", http.StatusInternalServerError)
		return nil, false
	}
	return portfolio, true
}

type portfolioRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HandleListPortfolios returns the authenticated user's portfolios.
func (h *PortfolioHandler) HandleListPortfolios(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	portfolios, err := models.ListPortfoliosByUser(database.DB, userID)
	if err != nil {
		logger.L.Error("Failed to list portfolios", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to list portfolios", http.StatusInternalServerError)
		return
	}
	if portfolios == nil {
		portfolios = []models.Portfolio{}
	}
	utils.SendJSON(w, portfolios, http.StatusOK)
}

// HandleCreatePortfolio creates a portfolio owned by the caller.
func (h *PortfolioHandler) HandleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req portfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		utils.SendJSONError(w, "Portfolio name is required", http.StatusBadRequest)
		return
	}

	portfolio := &models.Portfolio{
		UserID:      userID,
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
	}
	if err := models.CreatePortfolio(database.DB, portfolio); err != nil {
		logger.L.Error("Failed to create portfolio", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to create portfolio", http.StatusInternalServerError)
		return
	}
	logger.L.Info("Portfolio created", "portfolioID", portfolio.ID, "userID", userID)
	utils.SendJSON(w, portfolio, http.StatusCreated)
}

// HandleGetPortfolio returns one portfolio with its current positions.
func (h *PortfolioHandler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	portfolio, ok := ownedPortfolio(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	positions, err := models.ListPositionsByPortfolio(database.DB, portfolio.ID)
	if err != nil {
		logger.L.Error("Failed to load positions", "portfolioID", portfolio.ID, "error", err)
		utils.SendJSONError(w, "Failed to load portfolio", http.StatusInternalServerError)
		return
	}
	if positions == nil {
		positions = []models.Position{}
	}
	utils.SendJSON(w, models.PortfolioDetail{Portfolio: *portfolio, Positions: positions}, http.StatusOK)
}

// HandleUpdatePortfolio renames a portfolio or changes its description.
func (h *PortfolioHandler) HandleUpdatePortfolio(w http.ResponseWriter, r *http.Request) {
	portfolio, ok := ownedPortfolio(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	var req portfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		utils.SendJSONError(w, "Portfolio name is required", http.StatusBadRequest)
		return
	}

	portfolio.Name = req.Name
	portfolio.Description = strings.TrimSpace(req.Description)
	if err := models.UpdatePortfolio(database.DB, portfolio); err != nil {
		logger.L.Error("Failed to update portfolio", "portfolioID", portfolio.ID, "error", err)
		utils.SendJSONError(w, "Failed to update portfolio", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, portfolio, http.StatusOK)
}

// HandleDeletePortfolio deletes a portfolio with all its transactions,
// positions and snapshots.
func (h *PortfolioHandler) HandleDeletePortfolio(w http.ResponseWriter, r *http.Request) {
	portfolio, ok := ownedPortfolio(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	if err := models.DeletePortfolio(database.DB, portfolio.ID); err != nil {
		logger.L.Error("Failed to delete portfolio", "portfolioID", portfolio.ID, "error", err)
		utils.SendJSONError(w, "Failed to delete portfolio", http.StatusInternalServerError)
		return
	}
	logger.L.Info("Portfolio deleted", "portfolioID", portfolio.ID)
	w.WriteHeader(http.StatusNoContent)
}
