package types

import (
	"github.com/wardenlabs/reportrelay/internal/catalog"
	"github.com/wardenlabs/reportrelay/internal/stats"
	dbtypes "github.com/wardenlabs/reportrelay/internal/storage/database/types"
)

// StatusResponse is the generic status envelope used for errors and
// bare success acknowledgements.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Bot    string `json:"bot"`
}

// ReportAcceptedResponse acknowledges a persisted report.
type ReportAcceptedResponse struct {
	Status   string `json:"status"`
	ReportID int64  `json:"report_id"`
}

// LoginRequest is the admin login body.
type LoginRequest struct {
	Password string `json:"password"`
}

// AuthCheckResponse reports whether the caller holds a live session.
type AuthCheckResponse struct {
	Authenticated bool `json:"authenticated"`
}

// AdminMutationRequest adds or identifies an admin by Discord user id.
type AdminMutationRequest struct {
	UserID UserIDValue `json:"user_id"`
}

// UserIDValue is a Discord user id in either JSON form. Panels send it
// as a string because snowflakes overflow JavaScript numbers; bot
// integrations send the raw integer.
type UserIDValue string

// UnmarshalJSON accepts both the quoted and the bare form. The content
// is validated where the id is parsed, not here.
func (v *UserIDValue) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	*v = UserIDValue(s)
	return nil
}

// AdminListResponse lists the known admins.
type AdminListResponse struct {
	Admins []*dbtypes.AdminUser `json:"admins"`
}

// ReportListResponse lists reports for admin queries.
type ReportListResponse struct {
	Reports []*dbtypes.Report `json:"reports"`
}

// DashboardResponse bundles the statistics views with the best-effort
// game catalog data. GameStats is null when the catalog lookup fails
// or no place is configured.
type DashboardResponse struct {
	*stats.Dashboard

	GameStats *catalog.GameStats `json:"game_stats"`
}
