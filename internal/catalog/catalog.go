package catalog

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jaxron/roapi.go/pkg/api"
	apitypes "github.com/jaxron/roapi.go/pkg/api/types"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// UniverseLookupEndpoint resolves a place to its universe. The typed
// resources cover the per-user games endpoints only, so the catalog
// calls these two endpoints through the underlying request builder.
const UniverseLookupEndpoint = "https://apis.roblox.com"

// GameStats holds the catalog figures for the monitored place, shown
// alongside report statistics on the admin dashboard.
type GameStats struct {
	Name       string    `json:"name"`
	Playing    uint64    `json:"playing"`
	Visits     uint64    `json:"visits"`
	Favorites  uint64    `json:"favorites"`
	Created    time.Time `json:"created"`
	Updated    time.Time `json:"updated"`
	UniverseID uint64    `json:"universeId"`
	PlaceID    uint64    `json:"placeId"`
}

// Client fetches game catalog data from the Roblox games API, caching
// results in Redis so dashboard refreshes do not hammer the upstream.
type Client struct {
	roAPI  *api.API
	redis  rueidis.Client
	ttl    time.Duration
	logger *zap.Logger

	// fetch is swappable in tests to avoid the live API.
	fetch func(ctx context.Context, placeID uint64) (*GameStats, error)
}

// NewClient creates a catalog client with the given cache TTL.
func NewClient(roAPI *api.API, redisClient rueidis.Client, ttl time.Duration, logger *zap.Logger) *Client {
	c := &Client{
		roAPI:  roAPI,
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
	}
	c.fetch = c.fetchFromAPI
	return c
}

// GetGameStats returns the catalog figures for the place, serving from
// cache when fresh. Catalog data is decoration on the dashboard, so
// upstream failures degrade to a nil result rather than an error.
func (c *Client) GetGameStats(ctx context.Context, placeID uint64) *GameStats {
	if placeID == 0 {
		return nil
	}

	key := fmt.Sprintf("catalog:place:%d", placeID)

	cached, err := c.redis.Do(ctx, c.redis.B().Get().Key(key).Build()).AsBytes()
	if err == nil {
		var stats GameStats
		if err := sonic.Unmarshal(cached, &stats); err == nil {
			return &stats
		}
		c.logger.Warn("Discarding malformed catalog cache entry", zap.String("key", key))
	} else if !rueidis.IsRedisNil(err) {
		c.logger.Warn("Failed to read catalog cache", zap.Error(err))
	}

	stats, err := c.fetch(ctx, placeID)
	if err != nil {
		c.logger.Warn("Failed to fetch game stats",
			zap.Uint64("place_id", placeID),
			zap.Error(err))
		return nil
	}

	if data, err := sonic.Marshal(stats); err == nil {
		if err := c.redis.Do(ctx, c.redis.B().Set().Key(key).Value(string(data)).
			Ex(c.ttl).Build()).Error(); err != nil {
			c.logger.Warn("Failed to write catalog cache", zap.Error(err))
		}
	}

	return stats
}

// universeResponse is the universe resolution payload.
type universeResponse struct {
	UniverseID uint64 `json:"universeId"`
}

// gameDetail is one entry of the games listing payload.
type gameDetail struct {
	ID             uint64    `json:"id"`
	RootPlaceID    uint64    `json:"rootPlaceId"`
	Name           string    `json:"name"`
	Playing        uint64    `json:"playing"`
	Visits         uint64    `json:"visits"`
	FavoritedCount uint64    `json:"favoritedCount"`
	Created        time.Time `json:"created"`
	Updated        time.Time `json:"updated"`
}

// gamesResponse is the games listing payload.
type gamesResponse struct {
	Data []gameDetail `json:"data"`
}

// fetchFromAPI resolves the place to its universe and pulls the game
// details from the games API.
func (c *Client) fetchFromAPI(ctx context.Context, placeID uint64) (*GameStats, error) {
	var universe universeResponse
	resp, err := c.roAPI.GetClient().NewRequest().
		Method(http.MethodGet).
		URL(fmt.Sprintf("%s/universes/v1/places/%d/universe", UniverseLookupEndpoint, placeID)).
		Result(&universe).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve universe for place %d: %w", placeID, err)
	}
	resp.Body.Close()

	var games gamesResponse
	resp, err = c.roAPI.GetClient().NewRequest().
		Method(http.MethodGet).
		URL(apitypes.GamesEndpoint+"/v1/games").
		Query("universeIds", fmt.Sprintf("%d", universe.UniverseID)).
		Result(&games).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get game details for universe %d: %w", universe.UniverseID, err)
	}
	resp.Body.Close()

	if len(games.Data) == 0 {
		return nil, fmt.Errorf("no game data for universe %d", universe.UniverseID)
	}

	detail := games.Data[0]
	return &GameStats{
		Name:       detail.Name,
		Playing:    detail.Playing,
		Visits:     detail.Visits,
		Favorites:  detail.FavoritedCount,
		Created:    detail.Created,
		Updated:    detail.Updated,
		UniverseID: detail.ID,
		PlaceID:    detail.RootPlaceID,
	}, nil
}
