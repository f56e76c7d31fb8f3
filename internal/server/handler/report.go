package handler

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/uptrace/bunrouter"
	"github.com/wardenlabs/reportrelay/internal/ingest"
	restTypes "github.com/wardenlabs/reportrelay/internal/server/types"
	"go.uber.org/zap"
)

// MaxReportBodyBytes caps the /report request body.
const MaxReportBodyBytes = 64 << 10

// ReportHandler handles report submission from game servers.
type ReportHandler struct {
	pipeline *ingest.Pipeline
	apiKey   string
	logger   *zap.Logger
}

// NewReportHandler creates a new report handler. An empty apiKey
// disables the key check.
func NewReportHandler(pipeline *ingest.Pipeline, apiKey string, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		pipeline: pipeline,
		apiKey:   apiKey,
		logger:   logger,
	}
}

// Submit ingests one report. The report is durable once persisted; a
// notification failure still returns an error so the game server can
// flag it, but the report id has been assigned.
func (h *ReportHandler) Submit(w http.ResponseWriter, req bunrouter.Request) error {
	if h.apiKey != "" {
		supplied := req.Header.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(h.apiKey)) != 1 {
			return writeError(w, http.StatusUnauthorized, "Unauthorized")
		}
	}

	body, err := io.ReadAll(io.LimitReader(req.Body, MaxReportBodyBytes))
	if err != nil {
		return writeError(w, http.StatusBadRequest, "Invalid data format")
	}

	var payload ingest.ReportPayload
	if err := sonic.Unmarshal(body, &payload); err != nil {
		return writeError(w, http.StatusBadRequest, "Invalid data format")
	}

	reportID, err := h.pipeline.Process(req.Context(), &payload)
	if err != nil {
		var validationErr *ingest.ValidationError
		switch {
		case errors.As(err, &validationErr):
			return writeError(w, http.StatusBadRequest, validationErr.Reason)
		case errors.Is(err, ingest.ErrNotifyFailed):
			h.logger.Error("Report stored but notification failed",
				zap.Int64("report_id", reportID),
				zap.Error(err))
			return writeError(w, http.StatusInternalServerError, "Failed to send report notification")
		default:
			h.logger.Error("Failed to process report", zap.Error(err))
			return writeError(w, http.StatusInternalServerError, "Internal server error")
		}
	}

	return writeJSON(w, http.StatusOK, restTypes.ReportAcceptedResponse{
		Status:   "success",
		ReportID: reportID,
	})
}
