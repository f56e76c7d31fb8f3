package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/uptrace/bun"
	"github.com/wardenlabs/reportrelay/internal/storage/database/types"
	"go.uber.org/zap"
)

// AdminModel handles database operations for admin identities.
type AdminModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewAdmin creates a new AdminModel instance.
func NewAdmin(db *bun.DB, logger *zap.Logger) *AdminModel {
	return &AdminModel{
		db:     db,
		logger: logger,
	}
}

// Add grants admin access to a Discord user. Adding an existing admin
// is a no-op, not an error.
func (m *AdminModel) Add(ctx context.Context, userID snowflake.ID, addedBy uint64) error {
	record := &types.AdminUser{
		DiscordUserID: userID,
		AddedBy:       addedBy,
	}

	_, err := m.db.NewInsert().
		Model(record).
		On("CONFLICT (discord_user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to add admin %d: %w", userID, err)
	}

	return nil
}

// Remove revokes admin access for a Discord user.
// Returns true if a row was removed, false if the user was not an admin.
func (m *AdminModel) Remove(ctx context.Context, userID snowflake.ID) (bool, error) {
	result, err := m.db.NewDelete().
		Model((*types.AdminUser)(nil)).
		Where("discord_user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to remove admin %d: %w", userID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// IsAdmin checks whether a Discord user has an admin row in the store.
func (m *AdminModel) IsAdmin(ctx context.Context, userID snowflake.ID) (bool, error) {
	exists, err := m.db.NewSelect().
		Model((*types.AdminUser)(nil)).
		Where("discord_user_id = ?", userID).
		Exists(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}

	return exists, nil
}

// List retrieves all admin identities, most recently added first.
func (m *AdminModel) List(ctx context.Context) ([]*types.AdminUser, error) {
	var admins []*types.AdminUser
	err := m.db.NewSelect().
		Model(&admins).
		OrderExpr("added_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}

	return admins, nil
}
