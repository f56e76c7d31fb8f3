package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTest(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	redisClient, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		redisClient.Close()
		mr.Close()
	})

	return NewClient(nil, redisClient, 5*time.Minute, zap.NewNop()), mr
}

func TestGetGameStatsCachesFetchResult(t *testing.T) {
	t.Parallel()
	client, _ := setupTest(t)

	fetchCalls := 0
	client.fetch = func(ctx context.Context, placeID uint64) (*GameStats, error) {
		fetchCalls++
		return &GameStats{
			Name:    "Test Game",
			Playing: 42,
			Visits:  1000,
			PlaceID: placeID,
		}, nil
	}

	first := client.GetGameStats(t.Context(), 123)
	require.NotNil(t, first)
	assert.Equal(t, "Test Game", first.Name)
	assert.Equal(t, 1, fetchCalls)

	second := client.GetGameStats(t.Context(), 123)
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)
	assert.Equal(t, 1, fetchCalls, "second call must come from cache")
}

func TestGetGameStatsRefetchesAfterExpiry(t *testing.T) {
	t.Parallel()
	client, mr := setupTest(t)

	fetchCalls := 0
	client.fetch = func(ctx context.Context, placeID uint64) (*GameStats, error) {
		fetchCalls++
		return &GameStats{Name: "Test Game", PlaceID: placeID}, nil
	}

	require.NotNil(t, client.GetGameStats(t.Context(), 123))
	mr.FastForward(10 * time.Minute)
	require.NotNil(t, client.GetGameStats(t.Context(), 123))

	assert.Equal(t, 2, fetchCalls)
}

func TestGetGameStatsDegradesOnFetchFailure(t *testing.T) {
	t.Parallel()
	client, _ := setupTest(t)

	client.fetch = func(ctx context.Context, placeID uint64) (*GameStats, error) {
		return nil, errors.New("upstream down")
	}

	assert.Nil(t, client.GetGameStats(t.Context(), 123))
}

func TestGetGameStatsZeroPlace(t *testing.T) {
	t.Parallel()
	client, _ := setupTest(t)

	client.fetch = func(ctx context.Context, placeID uint64) (*GameStats, error) {
		t.Fatal("fetch must not be called for place 0")
		return nil, nil
	}

	assert.Nil(t, client.GetGameStats(t.Context(), 0))
}
