package handler

import (
	"net/http"

	"github.com/uptrace/bunrouter"
	"github.com/wardenlabs/reportrelay/internal/catalog"
	restTypes "github.com/wardenlabs/reportrelay/internal/server/types"
	"github.com/wardenlabs/reportrelay/internal/stats"
	"go.uber.org/zap"
)

// DashboardHandler serves the aggregate dashboard bundle.
type DashboardHandler struct {
	stats   *stats.Service
	catalog *catalog.Client
	placeID uint64
	logger  *zap.Logger
}

// NewDashboardHandler creates a new dashboard handler. catalogClient
// may be nil when no place is configured.
func NewDashboardHandler(statsService *stats.Service, catalogClient *catalog.Client, placeID uint64, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		stats:   statsService,
		catalog: catalogClient,
		placeID: placeID,
		logger:  logger,
	}
}

// Dashboard returns the statistics bundle plus best-effort game
// catalog data. Catalog failure leaves game_stats null; statistics
// failure is a hard error.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, req bunrouter.Request) error {
	bundle, err := h.stats.Dashboard(req.Context())
	if err != nil {
		h.logger.Error("Failed to build dashboard", zap.Error(err))
		return writeError(w, http.StatusInternalServerError, "Internal server error")
	}

	response := restTypes.DashboardResponse{Dashboard: bundle}
	if h.catalog != nil {
		response.GameStats = h.catalog.GetGameStats(req.Context(), h.placeID)
	}

	return writeJSON(w, http.StatusOK, response)
}
