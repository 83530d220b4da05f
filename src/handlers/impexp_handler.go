package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/Mlocoes/BolsaV2/src/config"
	"github.com/Mlocoes/BolsaV2/src/logger"
	"github.com/Mlocoes/BolsaV2/src/services"
	"github.com/Mlocoes/BolsaV2/src/utils"
)

type ImportExportHandler struct {
	impexpService services.ImportExportService
}

func NewImportExportHandler(impexpService services.ImportExportService) *ImportExportHandler {
	return &ImportExportHandler{impexpService: impexpService}
}

// uploadFile extracts the "file" part of a multipart upload, bounded by the
// configured size limit.
func uploadFile(w http.ResponseWriter, r *http.Request) (multipart.File, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, config.Cfg.MaxImportSizeBytes)
	if err := r.ParseMultipartForm(config.Cfg.MaxImportSizeBytes); err != nil {
		utils.SendJSONError(w, "Upload too large or malformed", http.StatusBadRequest)
		return nil, false
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		utils.SendJSONError(w, "Missing 'file' upload field", http.StatusBadRequest)
		return nil, false
	}
	return file, true
}

// HandleImportTransactions imports a transaction CSV into a portfolio.
func (h *ImportExportHandler) HandleImportTransactions(w http.ResponseWriter, r *http.Request) {
	portfolio, ok := ownedPortfolio(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	file, ok := uploadFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	summary, err := h.impexpService.ImportTransactionsCSV(portfolio.ID, file)
	if err != nil {
		if errors.Is(err, services.ErrImportFailed) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.L.Error("Transaction import failed", "portfolioID", portfolio.ID, "error", err)
		utils.SendJSONError(w, "Import failed", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, summary, http.StatusCreated)
}

// HandleExportTransactions streams a portfolio's transactions as a CSV
// download.
func (h *ImportExportHandler) HandleExportTransactions(w http.ResponseWriter, r *http.Request) {
	portfolio, ok := ownedPortfolio(w, r, r.PathValue("id"))
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"transactions_%s.csv\"", portfolio.ID))

	if err := h.impexpService.ExportTransactionsCSV(portfolio.ID, w); err != nil {
		// Headers are already sent; just log.
		logger.L.Error("Transaction export failed", "portfolioID", portfolio.ID, "error", err)
	}
}

// HandleImportQuotes imports a quote CSV for any symbols.
func (h *ImportExportHandler) HandleImportQuotes(w http.ResponseWriter, r *http.Request) {
	file, ok := uploadFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	summary, err := h.impexpService.ImportQuotesCSV(file)
	if err != nil {
		if errors.Is(err, services.ErrImportFailed) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.L.Error("Quote import failed", "error", err)
		utils.SendJSONError(w, "Import failed", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, summary, http.StatusCreated)
}
