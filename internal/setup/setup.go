package setup

import (
	"log"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jaxron/axonet/middleware/retry"
	"github.com/jaxron/axonet/middleware/singleflight"
	"github.com/jaxron/axonet/pkg/client"
	"github.com/jaxron/roapi.go/pkg/api"
	"github.com/wardenlabs/reportrelay/internal/catalog"
	"github.com/wardenlabs/reportrelay/internal/logging"
	"github.com/wardenlabs/reportrelay/internal/notify"
	"github.com/wardenlabs/reportrelay/internal/setup/config"
	"github.com/wardenlabs/reportrelay/internal/storage/database"
	"github.com/wardenlabs/reportrelay/internal/storage/redis"
	"go.uber.org/zap"
)

// App contains all the shared components wired during startup.
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	DBLogger     *zap.Logger
	DB           *database.Client
	RedisManager *redis.Manager
	RoAPI        *api.API
	Notifier     *notify.DiscordNotifier
	Catalog      *catalog.Client
}

// InitializeApp performs common setup tasks and returns an App.
func InitializeApp(logDir string) (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger, dbLogger, err := logging.SetupLogging(logDir, cfg.Debug.LogLevel, cfg.Debug.MaxLogsToKeep)
	if err != nil {
		return nil, err
	}

	db, err := database.NewConnection(&cfg.PostgreSQL, dbLogger)
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		return nil, err
	}

	redisManager := redis.NewManager(&cfg.Redis, logger)

	notifier, err := notify.NewDiscordNotifier(cfg.Discord.Token, cfg.Discord.ChannelID, logger)
	if err != nil {
		logger.Error("Failed to create Discord notifier", zap.Error(err))
		return nil, err
	}

	roAPI := getRoAPIClient(logger)

	var catalogClient *catalog.Client
	if cfg.Catalog.PlaceID != 0 {
		cacheClient, err := redisManager.GetClient(redis.CacheDBIndex)
		if err != nil {
			logger.Error("Failed to create catalog cache client", zap.Error(err))
			return nil, err
		}
		catalogClient = catalog.NewClient(roAPI, cacheClient,
			time.Duration(cfg.Catalog.CacheTTLSec)*time.Second, logger)
	}

	return &App{
		Config:       cfg,
		Logger:       logger,
		DBLogger:     dbLogger,
		DB:           db,
		RedisManager: redisManager,
		RoAPI:        roAPI,
		Notifier:     notifier,
		Catalog:      catalogClient,
	}, nil
}

// getRoAPIClient constructs the HTTP client used for Roblox API calls.
// Middleware runs in the order added, so retry wraps singleflight.
func getRoAPIClient(logger *zap.Logger) *api.API {
	return api.New(nil,
		client.WithMarshalFunc(sonic.Marshal),
		client.WithUnmarshalFunc(sonic.Unmarshal),
		client.WithLogger(NewLogger(logger)),
		client.WithTimeout(10*time.Second),
		client.WithMiddleware(retry.New(3, 1*time.Second, 5*time.Second)),
		client.WithMiddleware(singleflight.New()),
	)
}

// Cleanup releases all components in reverse order of creation.
func (a *App) Cleanup() {
	if err := a.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}
	if err := a.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}
	a.RedisManager.Close()
	if err := a.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}
}
