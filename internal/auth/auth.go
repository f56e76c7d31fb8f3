package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/wardenlabs/reportrelay/internal/storage/database"
	"go.uber.org/zap"
)

// SessionDuration is the fixed lifetime of an admin session. Sessions
// are never refreshed; expiry is absolute from login.
const SessionDuration = 24 * time.Hour

// ErrInvalidPassword is returned when a login attempt fails the
// password check.
var ErrInvalidPassword = errors.New("invalid admin password")

// Authority handles admin authentication: password login issuing
// opaque session tokens, per-request session validation, and the admin
// allowlist combining configured ids with store-managed ones.
type Authority struct {
	db           *database.Client
	passwordHash [sha256.Size]byte
	alwaysAdmins map[uint64]struct{}
	logger       *zap.Logger
}

// New creates an authority. Configured admin ids are admins for the
// lifetime of the process regardless of the store's contents.
func New(db *database.Client, password string, adminIDs []uint64, logger *zap.Logger) *Authority {
	always := make(map[uint64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		always[id] = struct{}{}
	}

	return &Authority{
		db:           db,
		passwordHash: sha256.Sum256([]byte(password)),
		alwaysAdmins: always,
		logger:       logger,
	}
}

// Login checks the supplied password and, on success, creates and
// returns a new session token valid for SessionDuration.
func (a *Authority) Login(ctx context.Context, password string) (string, error) {
	supplied := sha256.Sum256([]byte(password))
	if subtle.ConstantTimeCompare(supplied[:], a.passwordHash[:]) != 1 {
		return "", ErrInvalidPassword
	}

	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}

	expiresAt := time.Now().Add(SessionDuration)
	if err := a.db.Sessions().Create(ctx, token, expiresAt); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	a.logger.Info("Admin session created", zap.Time("expires_at", expiresAt))
	return token, nil
}

// Validate reports whether the token belongs to a live session. The
// store is consulted on every call; there is no in-process session
// cache, so revocation and expiry take effect immediately.
func (a *Authority) Validate(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	return a.db.Sessions().Validate(ctx, token)
}

// Logout revokes the session behind the token. Unknown tokens are a
// no-op.
func (a *Authority) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return a.db.Sessions().Delete(ctx, token)
}

// IsAdmin reports whether the Discord user is an admin, either via the
// configured always-admin list or the store.
func (a *Authority) IsAdmin(ctx context.Context, userID snowflake.ID) (bool, error) {
	if _, ok := a.alwaysAdmins[uint64(userID)]; ok {
		return true, nil
	}
	return a.db.Admins().IsAdmin(ctx, userID)
}

// SeedConfigured inserts the configured admin ids into the store so
// they show up in admin listings. The insert is idempotent.
func (a *Authority) SeedConfigured(ctx context.Context) error {
	for id := range a.alwaysAdmins {
		if err := a.db.Admins().Add(ctx, snowflake.ID(id), 0); err != nil {
			return fmt.Errorf("failed to seed admin %d: %w", id, err)
		}
	}
	return nil
}

// PurgeExpired removes expired sessions from the store and returns the
// number removed.
func (a *Authority) PurgeExpired(ctx context.Context) (int64, error) {
	return a.db.Sessions().PurgeExpired(ctx)
}

// generateToken returns 32 bytes of randomness as an unpadded URL-safe
// base64 string.
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
