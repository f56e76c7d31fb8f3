package ingest

import (
	"time"
)

// Hard limits on report fields. Anything else is display data and is
// defaulted rather than rejected.
const (
	MaxAbuseTypeLen      = 100
	MaxAdditionalInfoLen = 2000
)

// SubjectPayload identifies one side of a report as sent by the game
// server. Only UserID carries a hard constraint; the rest is display
// data.
type SubjectPayload struct {
	UserID     int64  `json:"userId"`
	Name       string `json:"name"`
	Thumbnail  string `json:"thumbnail"`
	ProfileURL string `json:"profileUrl"`
}

// ReportPayload is the intermediate form a /report body is parsed into
// before validation. Reporter and Reported are pointers so a missing
// sub-object is distinguishable from an empty one.
type ReportPayload struct {
	Reporter       *SubjectPayload `json:"reporter"`
	Reported       *SubjectPayload `json:"reported"`
	AbuseType      string          `json:"abuseType"`
	AdditionalInfo string          `json:"additionalInfo"`
	ServerID       string          `json:"serverId"`
	PlaceID        int64           `json:"placeId"`
	Timestamp      int64           `json:"timestamp"`
}

// Validate enforces the hard constraints on a parsed payload and
// returns a human-readable reason on failure. Fields outside these
// constraints pass through unchecked.
func Validate(payload *ReportPayload) (bool, string) {
	if payload == nil {
		return false, "Invalid data format"
	}

	if payload.Reporter == nil || payload.Reported == nil {
		return false, "Invalid reporter or reported data"
	}

	if payload.Reporter.UserID <= 0 {
		return false, "Invalid reporter user ID"
	}

	if payload.Reported.UserID <= 0 {
		return false, "Invalid reported user ID"
	}

	if len(payload.AbuseType) > MaxAbuseTypeLen {
		return false, "Invalid abuse type"
	}

	if len(payload.AdditionalInfo) > MaxAdditionalInfoLen {
		return false, "Invalid additional info"
	}

	return true, ""
}

// ApplyDefaults fills the display fields the game server may omit.
// The system degrades display data gracefully instead of rejecting a
// structurally valid report.
func (p *ReportPayload) ApplyDefaults() {
	if p.Reporter != nil && p.Reporter.Name == "" {
		p.Reporter.Name = "Unknown"
	}
	if p.Reported != nil && p.Reported.Name == "" {
		p.Reported.Name = "Unknown"
	}
	if p.AbuseType == "" {
		p.AbuseType = "Unknown"
	}
	if p.ServerID == "" {
		p.ServerID = "Unknown"
	}
	if p.Timestamp == 0 {
		p.Timestamp = time.Now().Unix()
	}
}
