package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/wardenlabs/reportrelay/internal/auth"
	"go.uber.org/zap"
)

// PurgeTimeout bounds one run of the session purge job.
const PurgeTimeout = time.Minute

// Housekeeping runs the periodic background jobs: currently the
// expired-session purge. Expiry enforcement does not depend on it,
// this only keeps the sessions table from growing without bound.
type Housekeeping struct {
	cron      *cron.Cron
	authority *auth.Authority
	logger    *zap.Logger
}

// NewHousekeeping creates the housekeeping worker.
func NewHousekeeping(authority *auth.Authority, logger *zap.Logger) *Housekeeping {
	return &Housekeeping{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		authority: authority,
		logger:    logger,
	}
}

// Start registers the jobs and begins the schedule.
func (h *Housekeeping) Start() {
	if _, err := h.cron.AddFunc("@every 1h", h.purgeSessions); err != nil {
		h.logger.Error("Failed to register session purge job", zap.Error(err))
	}

	h.cron.Start()
	h.logger.Info("Housekeeping worker started")
}

// Stop stops the schedule and waits for any running job to finish.
func (h *Housekeeping) Stop() {
	ctx := h.cron.Stop()
	<-ctx.Done()
	h.logger.Info("Housekeeping worker stopped")
}

// purgeSessions removes expired admin sessions.
func (h *Housekeeping) purgeSessions() {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Session purge job panicked", zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), PurgeTimeout)
	defer cancel()

	purged, err := h.authority.PurgeExpired(ctx)
	if err != nil {
		h.logger.Error("Failed to purge expired sessions", zap.Error(err))
		return
	}

	if purged > 0 {
		h.logger.Info("Purged expired sessions", zap.Int64("count", purged))
	}
}
