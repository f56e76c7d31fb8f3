package types

// GlobalStats holds store-wide aggregate figures.
type GlobalStats struct {
	TotalReports   int64  `json:"total_reports"`
	Last24h        int64  `json:"today_reports"`
	UniqueReported int64  `json:"unique_reported"`
	TopAbuseType   string `json:"top_abuse_type"` // "type (count)" or "N/A" when no reports exist
}

// SubjectCount pairs a player id with a report count, used for the
// most-reported and top-reporter rankings.
type SubjectCount struct {
	UserID         int64 `bun:"user_id"         json:"user_id"`
	ReportCount    int64 `bun:"report_count"    json:"report_count"`
	LastReportTime int64 `bun:"last_report_time" json:"last_report_time,omitempty"`
}

// AbuseTypeCount pairs an abuse type with its report count.
type AbuseTypeCount struct {
	AbuseType string `bun:"abuse_type" json:"abuse_type"`
	Count     int64  `bun:"count"      json:"count"`
}

// HourCount holds the number of reports filed during one hour of the
// day within the trailing 24-hour window.
type HourCount struct {
	Hour  int   `json:"hour"`
	Count int64 `json:"count"`
}

// WindowTotals holds report counts for the trailing day, week and month.
type WindowTotals struct {
	Today int64 `json:"today"`
	Week  int64 `json:"week"`
	Month int64 `json:"month"`
}
