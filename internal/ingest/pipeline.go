package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wardenlabs/reportrelay/internal/stats"
	"github.com/wardenlabs/reportrelay/internal/storage/database"
	"github.com/wardenlabs/reportrelay/internal/storage/database/types"
	"go.uber.org/zap"
)

var (
	// ErrInvalidPayload marks a report rejected by validation; the
	// wrapped message carries the reason for the caller.
	ErrInvalidPayload = errors.New("invalid report payload")
	// ErrNotifyFailed marks a report that was persisted but whose
	// notification could not be delivered.
	ErrNotifyFailed = errors.New("failed to deliver report notification")
)

// NotifyTimeout bounds the external notifier call.
const NotifyTimeout = 10 * time.Second

// ValidationError carries the rejection reason for an invalid payload.
// It matches ErrInvalidPayload under errors.Is.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidPayload, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidPayload
}

// Notification is the fully-formed payload handed to the notifier once
// a report has been persisted and enriched with statistics.
type Notification struct {
	ReportID       int64
	AbuseType      string
	AdditionalInfo string // Untruncated; the notifier caps the excerpt at render time
	Reporter       SubjectPayload
	Reported       SubjectPayload
	ServerID       string
	PlaceID        int64
	Stats          stats.SubjectSummary
	TotalReports   int64
}

// Notifier delivers a finished notification to the chat channel.
// Delivery failure is reportable but never rolls back the report.
type Notifier interface {
	SendReport(ctx context.Context, notification *Notification) error
}

// Pipeline orchestrates report ingestion: validation, persistence,
// statistics enrichment and notification delivery.
type Pipeline struct {
	db       *database.Client
	stats    *stats.Service
	notifier Notifier
	logger   *zap.Logger
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(db *database.Client, statsService *stats.Service, notifier Notifier, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		db:       db,
		stats:    statsService,
		notifier: notifier,
		logger:   logger,
	}
}

// Process runs a parsed payload through the pipeline and returns the
// assigned report id. Once the insert succeeds the report exists
// regardless of downstream outcome; a notification failure surfaces as
// ErrNotifyFailed with the id still valid.
func (p *Pipeline) Process(ctx context.Context, payload *ReportPayload) (int64, error) {
	if ok, reason := Validate(payload); !ok {
		return 0, &ValidationError{Reason: reason}
	}
	payload.ApplyDefaults()

	report := &types.Report{
		ReporterID:     payload.Reporter.UserID,
		ReportedID:     payload.Reported.UserID,
		AbuseType:      payload.AbuseType,
		AdditionalInfo: payload.AdditionalInfo,
		Timestamp:      payload.Timestamp,
		ServerID:       payload.ServerID,
		PlaceID:        payload.PlaceID,
	}

	// Durability point
	reportID, err := p.db.Reports().Insert(ctx, report)
	if err != nil {
		return 0, fmt.Errorf("failed to persist report: %w", err)
	}

	p.logger.Info("Report received",
		zap.Int64("report_id", reportID),
		zap.Int64("reported_id", payload.Reported.UserID),
		zap.Int64("reporter_id", payload.Reporter.UserID))

	// The just-inserted report is excluded by timestamp from the
	// history figures so a fresh submission does not echo itself.
	summary, err := p.stats.SubjectSummary(ctx, payload.Reported.UserID, payload.Reporter.UserID, payload.Timestamp)
	if err != nil {
		return reportID, fmt.Errorf("failed to compute report statistics: %w", err)
	}

	global, err := p.db.Stats().Global(ctx)
	if err != nil {
		return reportID, fmt.Errorf("failed to compute global statistics: %w", err)
	}

	notification := &Notification{
		ReportID:       reportID,
		AbuseType:      payload.AbuseType,
		AdditionalInfo: payload.AdditionalInfo,
		Reporter:       *payload.Reporter,
		Reported:       *payload.Reported,
		ServerID:       payload.ServerID,
		PlaceID:        payload.PlaceID,
		Stats:          *summary,
		TotalReports:   global.TotalReports,
	}

	notifyCtx, cancel := context.WithTimeout(ctx, NotifyTimeout)
	defer cancel()

	if err := p.notifier.SendReport(notifyCtx, notification); err != nil {
		p.logger.Error("Failed to deliver report notification",
			zap.Int64("report_id", reportID),
			zap.Error(err))
		return reportID, fmt.Errorf("%w: %w", ErrNotifyFailed, err)
	}

	p.logger.Info("Report notification delivered", zap.Int64("report_id", reportID))
	return reportID, nil
}
