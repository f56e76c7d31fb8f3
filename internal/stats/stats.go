package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/wardenlabs/reportrelay/internal/storage/database"
	"github.com/wardenlabs/reportrelay/internal/storage/database/models"
	"github.com/wardenlabs/reportrelay/internal/storage/database/types"
	"go.uber.org/zap"
)

// SubjectSummary holds the per-subject aggregate figures rendered into
// a report notification.
type SubjectSummary struct {
	Reports24h       int64  // Reports against the subject in the last day
	ReportsMonth     int64  // Reports against the subject in the last 30 days
	ReporterTotal    int64  // Reports ever filed by the reporter
	TimeSinceLast    string // Human-relative age of the previous report, empty when none
	MostCommonReason string // "type (n times)", empty when none
}

// Dashboard bundles the aggregate views served to the admin dashboard.
type Dashboard struct {
	Global       *types.GlobalStats      `json:"report_stats"`
	Totals       *types.WindowTotals     `json:"totals"`
	MostReported []*types.SubjectCount   `json:"most_reported"`
	TopReporters []*types.SubjectCount   `json:"top_reporters"`
	AbuseTypes   []*types.AbuseTypeCount `json:"abuse_types"`
	ByHour       []types.HourCount       `json:"reports_by_hour"`
	Recent       []*types.Report         `json:"recent_reports"`
}

// RecentDetailedLimit bounds the dashboard's recent-reports list.
const RecentDetailedLimit = 20

// Service computes display-ready statistics over the store. Every call
// is a point-in-time snapshot; nothing is cached between requests.
type Service struct {
	db     *database.Client
	logger *zap.Logger
}

// NewService creates a statistics service over the given store.
func NewService(db *database.Client, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// SubjectSummary computes the figures for one report notification.
// Reports stamped excludeTimestamp are omitted from the history-shaped
// figures (previous report, most common reason) so the submission that
// triggered the computation cannot be its own answer.
func (s *Service) SubjectSummary(ctx context.Context, reportedID, reporterID, excludeTimestamp int64) (*SubjectSummary, error) {
	now := time.Now().Unix()

	reports24h, err := s.db.Stats().CountSince(ctx, reportedID, now-models.DaySeconds)
	if err != nil {
		return nil, err
	}

	reportsMonth, err := s.db.Stats().CountSince(ctx, reportedID, now-models.MonthSeconds)
	if err != nil {
		return nil, err
	}

	reporterTotal, err := s.db.Stats().CountFiledBy(ctx, reporterID)
	if err != nil {
		return nil, err
	}

	summary := &SubjectSummary{
		Reports24h:    reports24h,
		ReportsMonth:  reportsMonth,
		ReporterTotal: reporterTotal,
	}

	if lastTS, found, err := s.db.Stats().LatestOther(ctx, reportedID, excludeTimestamp); err != nil {
		return nil, err
	} else if found {
		summary.TimeSinceLast = FormatTimeSince(now - lastTS)
	}

	if reason, found, err := s.db.Stats().TopReason(ctx, reportedID, excludeTimestamp); err != nil {
		return nil, err
	} else if found {
		summary.MostCommonReason = fmt.Sprintf("%s (%d times)", reason.AbuseType, reason.Count)
	}

	return summary, nil
}

// Dashboard assembles all aggregate views for the admin dashboard.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	global, err := s.db.Stats().Global(ctx)
	if err != nil {
		return nil, err
	}

	totals, err := s.db.Stats().WindowTotals(ctx)
	if err != nil {
		return nil, err
	}

	mostReported, err := s.db.Stats().MostReported(ctx, 10)
	if err != nil {
		return nil, err
	}

	topReporters, err := s.db.Stats().TopReporters(ctx, 10)
	if err != nil {
		return nil, err
	}

	abuseTypes, err := s.db.Stats().CountsByAbuseType(ctx)
	if err != nil {
		return nil, err
	}

	byHour, err := s.db.Stats().HourHistogram(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := s.db.Reports().ListRecent(ctx, RecentDetailedLimit)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Global:       global,
		Totals:       totals,
		MostReported: mostReported,
		TopReporters: topReporters,
		AbuseTypes:   abuseTypes,
		ByHour:       byHour,
		Recent:       recent,
	}, nil
}

// FormatTimeSince renders an age in seconds as a human-relative
// duration, selecting the largest unit whose threshold the age does
// not exceed.
func FormatTimeSince(seconds int64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%d seconds ago", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%d minutes ago", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%d hours ago", seconds/3600)
	default:
		return fmt.Sprintf("%d days ago", seconds/86400)
	}
}
