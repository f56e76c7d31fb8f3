package auth_test

import (
	"database/sql"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/wardenlabs/reportrelay/internal/auth"
	"github.com/wardenlabs/reportrelay/internal/storage/database"
	"go.uber.org/zap"
)

func setupTest(t *testing.T, password string, adminIDs []uint64) *auth.Authority {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	logger := zap.NewNop()
	require.NoError(t, database.RunMigrations(t.Context(), db, logger))
	t.Cleanup(func() { db.Close() })

	return auth.New(database.NewClient(db, logger), password, adminIDs, logger)
}

func TestLoginIssuesValidSession(t *testing.T) {
	t.Parallel()
	authority := setupTest(t, "hunter2", nil)

	token, err := authority.Login(t.Context(), "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	valid, err := authority.Validate(t.Context(), token)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	t.Parallel()
	authority := setupTest(t, "hunter2", nil)

	_, err := authority.Login(t.Context(), "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidPassword)
}

func TestLoginIssuesDistinctTokens(t *testing.T) {
	t.Parallel()
	authority := setupTest(t, "hunter2", nil)

	first, err := authority.Login(t.Context(), "hunter2")
	require.NoError(t, err)
	second, err := authority.Login(t.Context(), "hunter2")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestValidateUnknownToken(t *testing.T) {
	t.Parallel()
	authority := setupTest(t, "hunter2", nil)

	valid, err := authority.Validate(t.Context(), "no-such-token")
	require.NoError(t, err)
	assert.False(t, valid)

	valid, err = authority.Validate(t.Context(), "")
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestLogoutRevokesImmediately(t *testing.T) {
	t.Parallel()
	authority := setupTest(t, "hunter2", nil)

	token, err := authority.Login(t.Context(), "hunter2")
	require.NoError(t, err)

	require.NoError(t, authority.Logout(t.Context(), token))

	valid, err := authority.Validate(t.Context(), token)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestIsAdminConfiguredAndStored(t *testing.T) {
	t.Parallel()
	authority := setupTest(t, "hunter2", []uint64{111})

	isAdmin, err := authority.IsAdmin(t.Context(), snowflake.ID(111))
	require.NoError(t, err)
	assert.True(t, isAdmin, "configured ids are admins without seeding")

	isAdmin, err = authority.IsAdmin(t.Context(), snowflake.ID(222))
	require.NoError(t, err)
	assert.False(t, isAdmin)
}

func TestSeedConfiguredIsIdempotent(t *testing.T) {
	t.Parallel()
	authority := setupTest(t, "hunter2", []uint64{111, 222})

	require.NoError(t, authority.SeedConfigured(t.Context()))
	require.NoError(t, authority.SeedConfigured(t.Context()))
}
