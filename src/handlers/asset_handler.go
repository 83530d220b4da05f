package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Mlocoes/BolsaV2/src/database"
	"github.com/Mlocoes/BolsaV2/src/logger"
	"github.com/Mlocoes/BolsaV2/src/models"
	"github.com/Mlocoes/BolsaV2/src/security/validation"
	"github.com/Mlocoes/BolsaV2/src/utils"
)

type AssetHandler struct{}

func NewAssetHandler() *AssetHandler {
	return &AssetHandler{}
}

// HandleListAssets returns the asset catalog. Assets are shared across
// users; only transactions and positions are scoped per portfolio.
func (h *AssetHandler) HandleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := models.ListAssets(database.DB)
	if err != nil {
		logger.L.Error("Failed to list assets", "error", err)
		utils.SendJSONError(w, "Failed to list assets", http.StatusInternalServerError)
		return
	}
	if assets == nil {
		assets = []models.Asset{}
	}
	utils.SendJSON(w, assets, http.StatusOK)
}

type assetRequest struct {
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	AssetType string `json:"asset_type"`
	Currency  string `json:"currency"`
}

// HandleCreateAsset registers a new asset symbol.
func (h *AssetHandler) HandleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var req assetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	symbol, err := validation.NormalizeSymbol(req.Symbol)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.AssetType != "" && !models.ValidAssetType(req.AssetType) {
		utils.SendJSONError(w, "Invalid asset type", http.StatusBadRequest)
		return
	}
	if _, err := models.GetAssetBySymbol(database.DB, symbol); err == nil {
		utils.SendJSONError(w, "Asset already exists", http.StatusConflict)
		return
	}

	asset := &models.Asset{
		Symbol:    symbol,
		Name:      req.Name,
		AssetType: req.AssetType,
		Currency:  req.Currency,
	}
	if err := models.CreateAsset(database.DB, asset); err != nil {
		logger.L.Error("Failed to create asset", "symbol", symbol, "error", err)
		utils.SendJSONError(w, "Failed to create asset", http.StatusInternalServerError)
		return
	}
	logger.L.Info("Asset created", "assetID", asset.ID, "symbol", asset.Symbol)
	utils.SendJSON(w, asset, http.StatusCreated)
}

// HandleGetAsset returns a single asset by id.
func (h *AssetHandler) HandleGetAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := models.GetAssetByID(database.DB, r.PathValue("id"))
	if err == models.ErrNotFound {
		utils.SendJSONError(w, "Asset not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.L.Error("Failed to load asset", "assetID", r.PathValue("id"), "error", err)
		utils.SendJSONError(w, "Failed to load asset", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, asset, http.StatusOK)
}
