package ingest_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wardenlabs/reportrelay/internal/ingest"
)

func validPayload() *ingest.ReportPayload {
	return &ingest.ReportPayload{
		Reporter:  &ingest.SubjectPayload{UserID: 100, Name: "Reporter"},
		Reported:  &ingest.SubjectPayload{UserID: 200, Name: "Reported"},
		AbuseType: "Exploiting",
		Timestamp: 1700000000,
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		mutate     func(p *ingest.ReportPayload) *ingest.ReportPayload
		wantOK     bool
		wantReason string
	}{
		{
			name:   "valid payload",
			mutate: func(p *ingest.ReportPayload) *ingest.ReportPayload { return p },
			wantOK: true,
		},
		{
			name:       "nil payload",
			mutate:     func(*ingest.ReportPayload) *ingest.ReportPayload { return nil },
			wantReason: "Invalid data format",
		},
		{
			name: "missing reporter",
			mutate: func(p *ingest.ReportPayload) *ingest.ReportPayload {
				p.Reporter = nil
				return p
			},
			wantReason: "Invalid reporter or reported data",
		},
		{
			name: "missing reported",
			mutate: func(p *ingest.ReportPayload) *ingest.ReportPayload {
				p.Reported = nil
				return p
			},
			wantReason: "Invalid reporter or reported data",
		},
		{
			name: "zero reporter id",
			mutate: func(p *ingest.ReportPayload) *ingest.ReportPayload {
				p.Reporter.UserID = 0
				return p
			},
			wantReason: "Invalid reporter user ID",
		},
		{
			name: "negative reported id",
			mutate: func(p *ingest.ReportPayload) *ingest.ReportPayload {
				p.Reported.UserID = -5
				return p
			},
			wantReason: "Invalid reported user ID",
		},
		{
			name: "abuse type too long",
			mutate: func(p *ingest.ReportPayload) *ingest.ReportPayload {
				p.AbuseType = strings.Repeat("a", ingest.MaxAbuseTypeLen+1)
				return p
			},
			wantReason: "Invalid abuse type",
		},
		{
			name: "abuse type at limit",
			mutate: func(p *ingest.ReportPayload) *ingest.ReportPayload {
				p.AbuseType = strings.Repeat("a", ingest.MaxAbuseTypeLen)
				return p
			},
			wantOK: true,
		},
		{
			name: "additional info too long",
			mutate: func(p *ingest.ReportPayload) *ingest.ReportPayload {
				p.AdditionalInfo = strings.Repeat("a", ingest.MaxAdditionalInfoLen+1)
				return p
			},
			wantReason: "Invalid additional info",
		},
		{
			name: "empty abuse type is allowed",
			mutate: func(p *ingest.ReportPayload) *ingest.ReportPayload {
				p.AbuseType = ""
				return p
			},
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ok, reason := ingest.Validate(tt.mutate(validPayload()))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	payload := &ingest.ReportPayload{
		Reporter: &ingest.SubjectPayload{UserID: 100},
		Reported: &ingest.SubjectPayload{UserID: 200},
	}
	payload.ApplyDefaults()

	assert.Equal(t, "Unknown", payload.Reporter.Name)
	assert.Equal(t, "Unknown", payload.Reported.Name)
	assert.Equal(t, "Unknown", payload.AbuseType)
	assert.Equal(t, "Unknown", payload.ServerID)
	assert.NotZero(t, payload.Timestamp, "missing timestamp defaults to now")
}

func TestApplyDefaultsKeepsProvidedValues(t *testing.T) {
	t.Parallel()

	payload := validPayload()
	payload.ServerID = "job-123"
	payload.ApplyDefaults()

	assert.Equal(t, "Reporter", payload.Reporter.Name)
	assert.Equal(t, "Exploiting", payload.AbuseType)
	assert.Equal(t, "job-123", payload.ServerID)
	assert.Equal(t, int64(1700000000), payload.Timestamp)
}
