package models

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/wardenlabs/reportrelay/internal/storage/database/types"
	"go.uber.org/zap"
)

// ReportModel handles database operations for abuse reports. Reports
// are append-only: the model exposes no update or delete operations.
type ReportModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewReport creates a new ReportModel instance.
func NewReport(db *bun.DB, logger *zap.Logger) *ReportModel {
	return &ReportModel{
		db:     db,
		logger: logger,
	}
}

// Insert persists a new report and returns its assigned id.
func (m *ReportModel) Insert(ctx context.Context, report *types.Report) (int64, error) {
	_, err := m.db.NewInsert().
		Model(report).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to insert report: %w", err)
	}

	m.logger.Debug("Inserted report",
		zap.Int64("id", report.ID),
		zap.Int64("reported_id", report.ReportedID),
		zap.Int64("reporter_id", report.ReporterID))

	return report.ID, nil
}

// ListForSubject retrieves the most recent reports filed against a
// player, newest first, bounded by limit.
func (m *ReportModel) ListForSubject(ctx context.Context, reportedID int64, limit int) ([]*types.Report, error) {
	var reports []*types.Report
	err := m.db.NewSelect().
		Model(&reports).
		Where("reported_id = ?", reportedID).
		OrderExpr("timestamp DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports for subject %d: %w", reportedID, err)
	}

	return reports, nil
}

// ListRecent retrieves the most recent reports globally, newest first.
func (m *ReportModel) ListRecent(ctx context.Context, limit int) ([]*types.Report, error) {
	var reports []*types.Report
	err := m.db.NewSelect().
		Model(&reports).
		OrderExpr("timestamp DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent reports: %w", err)
	}

	return reports, nil
}

// Search finds reports whose abuse type or additional info contains the
// term, case-insensitively, newest first.
func (m *ReportModel) Search(ctx context.Context, term string, limit int) ([]*types.Report, error) {
	pattern := "%" + term + "%"

	var reports []*types.Report
	err := m.db.NewSelect().
		Model(&reports).
		Where("lower(abuse_type) LIKE lower(?)", pattern).
		WhereOr("lower(additional_info) LIKE lower(?)", pattern).
		OrderExpr("timestamp DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search reports: %w", err)
	}

	return reports, nil
}
