package handlers

import (
	"net/http"
	"time"

	"github.com/Mlocoes/BolsaV2/src/logger"
	"github.com/Mlocoes/BolsaV2/src/models"
	"github.com/Mlocoes/BolsaV2/src/services"
	"github.com/Mlocoes/BolsaV2/src/utils"
)

type SnapshotHandler struct {
	snapshotService services.SnapshotService
}

func NewSnapshotHandler(snapshotService services.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{snapshotService: snapshotService}
}

// HandleListSnapshots returns the stored daily valuations of a portfolio,
// optionally bounded by start_date/end_date (YYYY-MM-DD).
func (h *SnapshotHandler) HandleListSnapshots(w http.ResponseWriter, r *http.Request) {
	portfolio, ok := ownedPortfolio(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	snapshots, err := h.snapshotService.GetHistory(portfolio.ID, r.URL.Query().Get("start_date"), r.URL.Query().Get("end_date"))
	if err != nil {
		logger.L.Error("Failed to list snapshots", "portfolioID", portfolio.ID, "error", err)
		utils.SendJSONError(w, "Failed to list snapshots", http.StatusInternalServerError)
		return
	}
	if snapshots == nil {
		snapshots = []models.Snapshot{}
	}
	utils.SendJSON(w, snapshots, http.StatusOK)
}

// HandleCaptureSnapshot values the portfolio right now and upserts today's
// snapshot.
func (h *SnapshotHandler) HandleCaptureSnapshot(w http.ResponseWriter, r *http.Request) {
	portfolio, ok := ownedPortfolio(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	snap, err := h.snapshotService.CaptureSnapshot(portfolio.ID, time.Now().UTC())
	if err != nil {
		logger.L.Error("Failed to capture snapshot", "portfolioID", portfolio.ID, "error", err)
		utils.SendJSONError(w, "Failed to capture snapshot", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, snap, http.StatusCreated)
}
