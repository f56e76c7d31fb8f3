package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/wardenlabs/reportrelay/internal/storage/database/types"
	"go.uber.org/zap"
)

// Trailing aggregation windows, in seconds. All windowing keys off the
// client-supplied event timestamp, not insertion time.
const (
	DaySeconds   = 86400
	WeekSeconds  = 7 * DaySeconds
	MonthSeconds = 30 * DaySeconds
)

// StatsModel handles the read-side aggregate queries over reports.
// Every method is a point-in-time snapshot: no caching, each call
// re-reads current store state.
type StatsModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewStats creates a new StatsModel instance.
func NewStats(db *bun.DB, logger *zap.Logger) *StatsModel {
	return &StatsModel{
		db:     db,
		logger: logger,
	}
}

// CountSince counts reports against a player with an event timestamp at
// or after sinceEpoch.
func (m *StatsModel) CountSince(ctx context.Context, reportedID, sinceEpoch int64) (int64, error) {
	count, err := m.db.NewSelect().
		Model((*types.Report)(nil)).
		Where("reported_id = ?", reportedID).
		Where("timestamp >= ?", sinceEpoch).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count reports for subject %d: %w", reportedID, err)
	}

	return int64(count), nil
}

// CountFiledBy counts all reports ever filed by a reporter.
func (m *StatsModel) CountFiledBy(ctx context.Context, reporterID int64) (int64, error) {
	count, err := m.db.NewSelect().
		Model((*types.Report)(nil)).
		Where("reporter_id = ?", reporterID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count reports filed by %d: %w", reporterID, err)
	}

	return int64(count), nil
}

// LatestOther returns the event timestamp of the most recent report
// against a player, skipping reports stamped excludeTimestamp so a
// fresh submission does not count itself. The bool is false when no
// such report exists.
func (m *StatsModel) LatestOther(ctx context.Context, reportedID, excludeTimestamp int64) (int64, bool, error) {
	var ts int64
	err := m.db.NewSelect().
		Model((*types.Report)(nil)).
		Column("timestamp").
		Where("reported_id = ?", reportedID).
		Where("timestamp != ?", excludeTimestamp).
		OrderExpr("timestamp DESC").
		Limit(1).
		Scan(ctx, &ts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get latest report for subject %d: %w", reportedID, err)
	}

	return ts, true, nil
}

// TopReason returns the most common abuse type against a player with
// its count, skipping reports stamped excludeTimestamp. The bool is
// false when no qualifying report exists. Ties resolve to whatever the
// store returns first.
func (m *StatsModel) TopReason(ctx context.Context, reportedID, excludeTimestamp int64) (types.AbuseTypeCount, bool, error) {
	var row types.AbuseTypeCount
	err := m.db.NewSelect().
		Model((*types.Report)(nil)).
		ColumnExpr("abuse_type").
		ColumnExpr("COUNT(*) AS count").
		Where("reported_id = ?", reportedID).
		Where("timestamp != ?", excludeTimestamp).
		GroupExpr("abuse_type").
		OrderExpr("count DESC").
		Limit(1).
		Scan(ctx, &row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.AbuseTypeCount{}, false, nil
		}
		return types.AbuseTypeCount{}, false, fmt.Errorf("failed to get top reason for subject %d: %w", reportedID, err)
	}

	return row, true, nil
}

// Global computes the store-wide aggregate figures.
func (m *StatsModel) Global(ctx context.Context) (*types.GlobalStats, error) {
	total, err := m.db.NewSelect().
		Model((*types.Report)(nil)).
		Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count reports: %w", err)
	}

	dayAgo := time.Now().Unix() - DaySeconds
	last24h, err := m.db.NewSelect().
		Model((*types.Report)(nil)).
		Where("timestamp >= ?", dayAgo).
		Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent reports: %w", err)
	}

	var unique int64
	err = m.db.NewSelect().
		Model((*types.Report)(nil)).
		ColumnExpr("COUNT(DISTINCT reported_id)").
		Scan(ctx, &unique)
	if err != nil {
		return nil, fmt.Errorf("failed to count unique reported players: %w", err)
	}

	topAbuse := "N/A"
	var top types.AbuseTypeCount
	err = m.db.NewSelect().
		Model((*types.Report)(nil)).
		ColumnExpr("abuse_type").
		ColumnExpr("COUNT(*) AS count").
		GroupExpr("abuse_type").
		OrderExpr("count DESC").
		Limit(1).
		Scan(ctx, &top)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get top abuse type: %w", err)
	}
	if err == nil && top.AbuseType != "" {
		topAbuse = fmt.Sprintf("%s (%d)", top.AbuseType, top.Count)
	}

	return &types.GlobalStats{
		TotalReports:   int64(total),
		Last24h:        int64(last24h),
		UniqueReported: unique,
		TopAbuseType:   topAbuse,
	}, nil
}

// MostReported ranks players by how many reports were filed against
// them, including when each was last reported.
func (m *StatsModel) MostReported(ctx context.Context, limit int) ([]*types.SubjectCount, error) {
	var rows []*types.SubjectCount
	err := m.db.NewSelect().
		Model((*types.Report)(nil)).
		ColumnExpr("reported_id AS user_id").
		ColumnExpr("COUNT(*) AS report_count").
		ColumnExpr("MAX(timestamp) AS last_report_time").
		GroupExpr("reported_id").
		OrderExpr("report_count DESC").
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to rank most reported players: %w", err)
	}

	return rows, nil
}

// TopReporters ranks players by how many reports they filed.
func (m *StatsModel) TopReporters(ctx context.Context, limit int) ([]*types.SubjectCount, error) {
	var rows []*types.SubjectCount
	err := m.db.NewSelect().
		Model((*types.Report)(nil)).
		ColumnExpr("reporter_id AS user_id").
		ColumnExpr("COUNT(*) AS report_count").
		GroupExpr("reporter_id").
		OrderExpr("report_count DESC").
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to rank top reporters: %w", err)
	}

	return rows, nil
}

// CountsByAbuseType returns the per-abuse-type report counts, most
// common first.
func (m *StatsModel) CountsByAbuseType(ctx context.Context) ([]*types.AbuseTypeCount, error) {
	var rows []*types.AbuseTypeCount
	err := m.db.NewSelect().
		Model((*types.Report)(nil)).
		ColumnExpr("abuse_type").
		ColumnExpr("COUNT(*) AS count").
		GroupExpr("abuse_type").
		OrderExpr("count DESC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to count reports by abuse type: %w", err)
	}

	return rows, nil
}

// HourHistogram buckets the last 24 hours of reports by hour of day.
// Timestamps are fetched and bucketed here rather than in SQL to stay
// dialect-neutral; the window is small enough at these volumes.
func (m *StatsModel) HourHistogram(ctx context.Context) ([]types.HourCount, error) {
	dayAgo := time.Now().Unix() - DaySeconds

	var reports []*types.Report
	err := m.db.NewSelect().
		Model(&reports).
		Column("timestamp").
		Where("timestamp >= ?", dayAgo).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch report timestamps: %w", err)
	}

	buckets := make(map[int]int64)
	for _, report := range reports {
		buckets[report.EventTime().UTC().Hour()]++
	}

	histogram := make([]types.HourCount, 0, len(buckets))
	for hour := range 24 {
		if count, ok := buckets[hour]; ok {
			histogram = append(histogram, types.HourCount{Hour: hour, Count: count})
		}
	}

	return histogram, nil
}

// WindowTotals computes report counts for the trailing day, week and
// month.
func (m *StatsModel) WindowTotals(ctx context.Context) (*types.WindowTotals, error) {
	now := time.Now().Unix()

	totals := &types.WindowTotals{}
	for _, window := range []struct {
		seconds int64
		dest    *int64
	}{
		{DaySeconds, &totals.Today},
		{WeekSeconds, &totals.Week},
		{MonthSeconds, &totals.Month},
	} {
		count, err := m.db.NewSelect().
			Model((*types.Report)(nil)).
			Where("timestamp >= ?", now-window.seconds).
			Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count reports in window: %w", err)
		}
		*window.dest = int64(count)
	}

	return totals, nil
}
