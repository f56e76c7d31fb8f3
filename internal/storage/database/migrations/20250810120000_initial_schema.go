package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/wardenlabs/reportrelay/internal/storage/database/types"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		models := []interface{}{
			(*types.Report)(nil),
			(*types.AdminUser)(nil),
			(*types.AdminSession)(nil),
		}

		for _, model := range models {
			_, err := db.NewCreateTable().
				Model(model).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create table %T: %w", model, err)
			}
		}

		// Indexes backing the statistics and admin queries
		indexes := []struct {
			model  interface{}
			name   string
			column string
		}{
			{(*types.Report)(nil), "idx_reports_reported_id", "reported_id"},
			{(*types.Report)(nil), "idx_reports_reporter_id", "reporter_id"},
			{(*types.Report)(nil), "idx_reports_timestamp", "timestamp"},
			{(*types.Report)(nil), "idx_reports_abuse_type", "abuse_type"},
			{(*types.AdminUser)(nil), "idx_admin_users_discord_user_id", "discord_user_id"},
			{(*types.AdminSession)(nil), "idx_admin_sessions_token", "session_token"},
			{(*types.AdminSession)(nil), "idx_admin_sessions_expires_at", "expires_at"},
		}

		for _, idx := range indexes {
			_, err := db.NewCreateIndex().
				Model(idx.model).
				Index(idx.name).
				Column(idx.column).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create index %s: %w", idx.name, err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		models := []interface{}{
			(*types.AdminSession)(nil),
			(*types.AdminUser)(nil),
			(*types.Report)(nil),
		}

		for _, model := range models {
			_, err := db.NewDropTable().
				Model(model).
				IfExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to drop table %T: %w", model, err)
			}
		}

		return nil
	})
}
