package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"github.com/wardenlabs/reportrelay/internal/setup/config"
	"github.com/wardenlabs/reportrelay/internal/storage/database/migrations"
	"github.com/wardenlabs/reportrelay/internal/storage/database/models"
	"go.uber.org/zap"
)

// Client represents the database connection and operations.
// It manages access to the repositories that handle specific data types.
type Client struct {
	db       *bun.DB
	logger   *zap.Logger
	reports  *models.ReportModel
	admins   *models.AdminModel
	sessions *models.SessionModel
	stats    *models.StatsModel
}

// NewConnection establishes a new database connection and returns a Client instance.
func NewConnection(cfg *config.PostgreSQL, logger *zap.Logger) (*Client, error) {
	// Initialize database connection with config values
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithAddr(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		pgdriver.WithUser(cfg.User),
		pgdriver.WithPassword(cfg.Password),
		pgdriver.WithDatabase(cfg.DBName),
		pgdriver.WithInsecure(true),
		pgdriver.WithApplicationName("reportrelay"),
	))

	// Set connection pool settings
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Minute)
	sqldb.SetConnMaxIdleTime(time.Duration(cfg.MaxIdleTime) * time.Minute)

	// Create Bun db instance
	db := bun.NewDB(sqldb, pgdialect.New())
	db.AddQueryHook(NewHook(logger))

	// Run migrations
	if err := RunMigrations(context.Background(), db, logger); err != nil {
		return nil, err
	}

	client := NewClient(db, logger)
	logger.Info("Database connection established and migrations completed")
	return client, nil
}

// NewClient wraps an existing bun.DB in a Client with all repositories
// attached. Used directly by tests that supply their own database.
func NewClient(db *bun.DB, logger *zap.Logger) *Client {
	return &Client{
		db:       db,
		logger:   logger,
		reports:  models.NewReport(db, logger),
		admins:   models.NewAdmin(db, logger),
		sessions: models.NewSession(db, logger),
		stats:    models.NewStats(db, logger),
	}
}

// RunMigrations applies all registered migrations to the database.
func RunMigrations(ctx context.Context, db *bun.DB, logger *zap.Logger) error {
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize migrator: %w", err)
	}

	if err := migrator.Lock(ctx); err != nil {
		return fmt.Errorf("failed to lock migrator: %w", err)
	}
	defer migrator.Unlock(ctx) //nolint:errcheck

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if !group.IsZero() {
		logger.Info("Successfully ran database migrations",
			zap.Int64("group", group.ID),
			zap.Int("migrations", len(group.Migrations)))
	}

	return nil
}

// Close gracefully shuts down the database connection.
func (c *Client) Close() error {
	err := c.db.Close()
	if err != nil {
		c.logger.Error("Failed to close database connection", zap.Error(err))
		return err
	}
	c.logger.Info("Database connection closed")
	return nil
}

// Reports returns the repository for report records.
func (c *Client) Reports() *models.ReportModel {
	return c.reports
}

// Admins returns the repository for admin identities.
func (c *Client) Admins() *models.AdminModel {
	return c.admins
}

// Sessions returns the repository for admin sessions.
func (c *Client) Sessions() *models.SessionModel {
	return c.sessions
}

// Stats returns the repository for statistics queries.
func (c *Client) Stats() *models.StatsModel {
	return c.stats
}

// DB returns the underlying bun.DB instance.
func (c *Client) DB() *bun.DB {
	return c.db
}
