package server

import (
	"net/http"

	"github.com/uptrace/bunrouter"
	"github.com/wardenlabs/reportrelay/internal/auth"
	"github.com/wardenlabs/reportrelay/internal/catalog"
	"github.com/wardenlabs/reportrelay/internal/ingest"
	"github.com/wardenlabs/reportrelay/internal/server/handler"
	"github.com/wardenlabs/reportrelay/internal/server/middleware/ip"
	"github.com/wardenlabs/reportrelay/internal/server/middleware/ratelimit"
	"github.com/wardenlabs/reportrelay/internal/server/middleware/session"
	"github.com/wardenlabs/reportrelay/internal/setup/config"
	"github.com/wardenlabs/reportrelay/internal/stats"
	"github.com/wardenlabs/reportrelay/internal/storage/database"
	"go.uber.org/zap"
)

// Server wires handlers and middleware into the HTTP surface.
type Server struct {
	healthHandler    *handler.HealthHandler
	reportHandler    *handler.ReportHandler
	adminHandler     *handler.AdminHandler
	dashboardHandler *handler.DashboardHandler
}

// NewServer builds the router. Rate limiting applies to report
// submission only; the session gate covers everything under the admin
// surface except login, logout and the auth probe.
func NewServer(
	cfg *config.Config,
	db *database.Client,
	authority *auth.Authority,
	pipeline *ingest.Pipeline,
	statsService *stats.Service,
	catalogClient *catalog.Client,
	logger *zap.Logger,
) http.Handler {
	server := &Server{
		healthHandler:    handler.NewHealthHandler(),
		reportHandler:    handler.NewReportHandler(pipeline, cfg.Ingest.APIKey, logger),
		adminHandler:     handler.NewAdminHandler(authority, db, logger),
		dashboardHandler: handler.NewDashboardHandler(statsService, catalogClient, cfg.Catalog.PlaceID, logger),
	}

	ipMiddleware := ip.New(logger, cfg.Server.TrustProxyHeader)
	rateLimiter := ratelimit.New(&cfg.RateLimit, logger)
	sessionGate := session.New(authority, logger)

	router := bunrouter.New()
	router.Use(ipMiddleware.AsRESTMiddleware)

	router.GET("/", server.healthHandler.Status)
	router.Use(rateLimiter.AsRESTMiddleware).POST("/report", server.reportHandler.Submit)

	router.WithGroup("/admin", func(g *bunrouter.Group) {
		g.POST("/login", server.adminHandler.Login)
		g.POST("/logout", server.adminHandler.Logout)
		g.GET("/check", server.adminHandler.Check)

		g.Use(sessionGate.AsRESTMiddleware).WithGroup("", func(g *bunrouter.Group) {
			g.GET("/admins", server.adminHandler.ListAdmins)
			g.POST("/admins", server.adminHandler.AddAdmin)
			g.DELETE("/admins/:user_id", server.adminHandler.RemoveAdmin)
			g.GET("/reports", server.adminHandler.RecentReports)
			g.GET("/reports/:user_id", server.adminHandler.ReportsForSubject)
			g.GET("/search", server.adminHandler.SearchReports)
		})
	})

	router.Use(sessionGate.AsRESTMiddleware).GET("/api/dashboard", server.dashboardHandler.Dashboard)

	return router
}
