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

// SessionModel handles database operations for admin sessions.
type SessionModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewSession creates a new SessionModel instance.
func NewSession(db *bun.DB, logger *zap.Logger) *SessionModel {
	return &SessionModel{
		db:     db,
		logger: logger,
	}
}

// Create stores a new session token with the given expiry.
func (m *SessionModel) Create(ctx context.Context, token string, expiresAt time.Time) error {
	session := &types.AdminSession{
		SessionToken: token,
		ExpiresAt:    expiresAt,
	}

	_, err := m.db.NewInsert().
		Model(session).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create admin session: %w", err)
	}

	return nil
}

// Validate reports whether a session with this token exists and has not
// expired. Expiry is enforced here on every call; an expired row that
// has not been purged yet is still invalid.
func (m *SessionModel) Validate(ctx context.Context, token string) (bool, error) {
	session := new(types.AdminSession)
	err := m.db.NewSelect().
		Model(session).
		Where("session_token = ?", token).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up admin session: %w", err)
	}

	return !session.IsExpired(), nil
}

// Delete removes a session by token. Used on logout so the token is
// dead immediately rather than at expiry.
func (m *SessionModel) Delete(ctx context.Context, token string) error {
	_, err := m.db.NewDelete().
		Model((*types.AdminSession)(nil)).
		Where("session_token = ?", token).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete admin session: %w", err)
	}

	return nil
}

// PurgeExpired deletes all sessions past their expiry and returns how
// many rows were removed. Housekeeping only; Validate does not depend
// on it.
func (m *SessionModel) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := m.db.NewDelete().
		Model((*types.AdminSession)(nil)).
		Where("expires_at <= ?", time.Now()).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired sessions: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if affected > 0 {
		m.logger.Debug("Purged expired admin sessions", zap.Int64("count", affected))
	}

	return affected, nil
}
