package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/disgoorg/snowflake/v2"
	"github.com/uptrace/bunrouter"
	"github.com/wardenlabs/reportrelay/internal/auth"
	"github.com/wardenlabs/reportrelay/internal/server/middleware/session"
	restTypes "github.com/wardenlabs/reportrelay/internal/server/types"
	"github.com/wardenlabs/reportrelay/internal/storage/database"
	"go.uber.org/zap"
)

// Bounds for admin report queries.
const (
	SubjectReportsLimit = 50
	RecentReportsLimit  = 50
	SearchReportsLimit  = 50
)

// AdminHandler handles admin authentication and the admin query and
// management surface.
type AdminHandler struct {
	authority *auth.Authority
	db        *database.Client
	logger    *zap.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(authority *auth.Authority, db *database.Client, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		authority: authority,
		db:        db,
		logger:    logger,
	}
}

// Login exchanges the panel password for a session cookie.
func (h *AdminHandler) Login(w http.ResponseWriter, req bunrouter.Request) error {
	body, err := io.ReadAll(io.LimitReader(req.Body, 4<<10))
	if err != nil {
		return writeError(w, http.StatusBadRequest, "Invalid data format")
	}

	var login restTypes.LoginRequest
	if err := sonic.Unmarshal(body, &login); err != nil {
		return writeError(w, http.StatusBadRequest, "Invalid data format")
	}

	token, err := h.authority.Login(req.Context(), login.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			return writeError(w, http.StatusUnauthorized, "Invalid password")
		}
		h.logger.Error("Failed to log admin in", zap.Error(err))
		return writeError(w, http.StatusInternalServerError, "Internal server error")
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.SessionDuration.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return writeJSON(w, http.StatusOK, restTypes.StatusResponse{Status: "success"})
}

// Logout revokes the current session and clears the cookie.
func (h *AdminHandler) Logout(w http.ResponseWriter, req bunrouter.Request) error {
	if cookie, err := req.Cookie(session.CookieName); err == nil {
		if err := h.authority.Logout(req.Context(), cookie.Value); err != nil {
			h.logger.Error("Failed to revoke session", zap.Error(err))
			return writeError(w, http.StatusInternalServerError, "Internal server error")
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return writeJSON(w, http.StatusOK, restTypes.StatusResponse{Status: "success"})
}

// Check reports whether the caller holds a live session. Ungated so
// the panel can probe before showing the login form.
func (h *AdminHandler) Check(w http.ResponseWriter, req bunrouter.Request) error {
	token := ""
	if cookie, err := req.Cookie(session.CookieName); err == nil {
		token = cookie.Value
	}

	valid, err := h.authority.Validate(req.Context(), token)
	if err != nil {
		h.logger.Error("Failed to validate session", zap.Error(err))
		return writeError(w, http.StatusInternalServerError, "Internal server error")
	}

	return writeJSON(w, http.StatusOK, restTypes.AuthCheckResponse{Authenticated: valid})
}

// ListAdmins lists all known admins.
func (h *AdminHandler) ListAdmins(w http.ResponseWriter, req bunrouter.Request) error {
	admins, err := h.db.Admins().List(req.Context())
	if err != nil {
		h.logger.Error("Failed to list admins", zap.Error(err))
		return writeError(w, http.StatusInternalServerError, "Internal server error")
	}

	return writeJSON(w, http.StatusOK, restTypes.AdminListResponse{Admins: admins})
}

// AddAdmin grants admin access to a Discord user. Re-adding an
// existing admin succeeds without effect.
func (h *AdminHandler) AddAdmin(w http.ResponseWriter, req bunrouter.Request) error {
	body, err := io.ReadAll(io.LimitReader(req.Body, 4<<10))
	if err != nil {
		return writeError(w, http.StatusBadRequest, "Invalid data format")
	}

	var mutation restTypes.AdminMutationRequest
	if err := sonic.Unmarshal(body, &mutation); err != nil {
		return writeError(w, http.StatusBadRequest, "Invalid data format")
	}

	userID, err := parseUserID(string(mutation.UserID))
	if err != nil {
		return writeError(w, http.StatusBadRequest, "Invalid user ID")
	}

	if err := h.db.Admins().Add(req.Context(), userID, 0); err != nil {
		h.logger.Error("Failed to add admin", zap.Error(err))
		return writeError(w, http.StatusInternalServerError, "Internal server error")
	}

	h.logger.Info("Admin added", zap.Uint64("user_id", uint64(userID)))
	return writeJSON(w, http.StatusOK, restTypes.StatusResponse{Status: "success"})
}

// RemoveAdmin revokes store-managed admin access. Configured
// always-admin ids cannot be removed at runtime.
func (h *AdminHandler) RemoveAdmin(w http.ResponseWriter, req bunrouter.Request) error {
	userID, err := parseUserID(req.Param("user_id"))
	if err != nil {
		return writeError(w, http.StatusBadRequest, "Invalid user ID")
	}

	removed, err := h.db.Admins().Remove(req.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to remove admin", zap.Error(err))
		return writeError(w, http.StatusInternalServerError, "Internal server error")
	}
	if !removed {
		return writeError(w, http.StatusNotFound, "Admin not found")
	}

	h.logger.Info("Admin removed", zap.Uint64("user_id", uint64(userID)))
	return writeJSON(w, http.StatusOK, restTypes.StatusResponse{Status: "success"})
}

// ReportsForSubject lists the most recent reports against one player.
func (h *AdminHandler) ReportsForSubject(w http.ResponseWriter, req bunrouter.Request) error {
	subjectID, err := strconv.ParseInt(req.Param("user_id"), 10, 64)
	if err != nil || subjectID <= 0 {
		return writeError(w, http.StatusBadRequest, "Invalid user ID")
	}

	reports, err := h.db.Reports().ListForSubject(req.Context(), subjectID, SubjectReportsLimit)
	if err != nil {
		h.logger.Error("Failed to list reports for subject", zap.Error(err))
		return writeError(w, http.StatusInternalServerError, "Internal server error")
	}

	return writeJSON(w, http.StatusOK, restTypes.ReportListResponse{Reports: reports})
}

// RecentReports lists the most recent reports across all players.
func (h *AdminHandler) RecentReports(w http.ResponseWriter, req bunrouter.Request) error {
	reports, err := h.db.Reports().ListRecent(req.Context(), RecentReportsLimit)
	if err != nil {
		h.logger.Error("Failed to list recent reports", zap.Error(err))
		return writeError(w, http.StatusInternalServerError, "Internal server error")
	}

	return writeJSON(w, http.StatusOK, restTypes.ReportListResponse{Reports: reports})
}

// SearchReports searches reports by abuse type or details text.
func (h *AdminHandler) SearchReports(w http.ResponseWriter, req bunrouter.Request) error {
	query := strings.TrimSpace(req.URL.Query().Get("q"))
	if query == "" {
		return writeError(w, http.StatusBadRequest, "Missing search query")
	}

	reports, err := h.db.Reports().Search(req.Context(), query, SearchReportsLimit)
	if err != nil {
		h.logger.Error("Failed to search reports", zap.Error(err))
		return writeError(w, http.StatusInternalServerError, "Internal server error")
	}

	return writeJSON(w, http.StatusOK, restTypes.ReportListResponse{Reports: reports})
}

// parseUserID parses a Discord snowflake from its string form.
func parseUserID(raw string) (snowflake.ID, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid user id")
	}
	return snowflake.ID(id), nil
}
