package types

import (
	"time"
)

// Report represents a single player-abuse report received from a game
// server. Reports are immutable once written; there is no update or
// delete path for them anywhere in the system.
type Report struct {
	ID             int64     `bun:",pk,autoincrement" json:"id"`
	ReporterID     int64     `bun:",notnull"          json:"reporter_id"` // Player who filed the report
	ReportedID     int64     `bun:",notnull"          json:"reported_id"` // Player the report is about
	AbuseType      string    `bun:",notnull"          json:"abuse_type"`  // Short category, at most 100 chars
	AdditionalInfo string    `bun:",type:text"        json:"additional_info"` // Free-text details, may be empty
	Timestamp      int64     `bun:",notnull"          json:"timestamp"`   // Event time in epoch seconds, supplied by the client
	ServerID       string    `bun:""                  json:"server_id"`  // Originating game server instance
	PlaceID        int64     `bun:""                  json:"place_id"`   // Game/place the report came from
	CreatedAt      time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"` // Insertion time
}

// EventTime returns the client-supplied event time of the report.
// All statistical windowing keys off this value, not CreatedAt.
func (r *Report) EventTime() time.Time {
	return time.Unix(r.Timestamp, 0)
}
