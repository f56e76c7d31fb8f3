package handler

import (
	"net/http"

	"github.com/uptrace/bunrouter"
	restTypes "github.com/wardenlabs/reportrelay/internal/server/types"
)

// HealthHandler answers liveness probes.
type HealthHandler struct{}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Status reports service liveness. "bot" is kept for compatibility
// with game-server clients that poll it before submitting reports.
func (h *HealthHandler) Status(w http.ResponseWriter, req bunrouter.Request) error {
	return writeJSON(w, http.StatusOK, restTypes.HealthResponse{
		Status: "online",
		Bot:    "ready",
	})
}
