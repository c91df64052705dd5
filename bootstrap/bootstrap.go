// Package bootstrap builds the services of the balance tracker on top of an
// open database connection.
package bootstrap

import (
	"fmt"
	"log"
	"time"

	"github.com/lucasdistasi/crypto-balance-tracker-sub001/cache"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/config"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/marketdata"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/middleware"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/repository"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/routes"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/scheduler"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/services"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Application holds everything built on top of the database connection
type Application struct {
	Deps      routes.Dependencies
	Scheduler *scheduler.Scheduler
	redis     *redis.Client
}

// Build wires repositories, caches, market data and services. notifier
// receives refresh and snapshot events and may be nil.
func Build(cfg *config.Config, db *gorm.DB, notifier services.Notifier) (*Application, error) {
	app := &Application{}

	var factory cache.BackendFactory
	switch cfg.CacheBackend {
	case "redis":
		client, err := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		log.Printf("Using redis cache at %s", cfg.RedisAddr)
		app.redis = client
		factory = cache.RedisFactory(client)
	default:
		log.Println("Using in-memory cache")
		factory = cache.MemoryFactory(nil)
	}
	registry := cache.NewRegistry(cache.DefaultTierConfigs(), factory)

	caches, err := services.NewCaches(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to build caches: %w", err)
	}

	coinGecko := marketdata.NewCoinGeckoClient(marketdata.CoinGeckoConfig{
		BaseURL:           cfg.CoinGeckoBaseURL,
		APIKey:            cfg.CoinGeckoAPIKey,
		Plan:              cfg.CoinGeckoPlan,
		RequestsPerMinute: cfg.CoinGeckoRequestsPerMinute,
		Timeout:           time.Duration(cfg.CoinGeckoTimeoutSeconds) * time.Second,
	})
	cachedSource, err := marketdata.NewCachedSource(coinGecko, registry)
	if err != nil {
		return nil, fmt.Errorf("failed to build market data cache: %w", err)
	}

	cryptoRepo := repository.NewCryptoRepository(db)
	platformRepo := repository.NewPlatformRepository(db)
	holdingRepo := repository.NewUserCryptoRepository(db)
	balanceRepo := repository.NewDateBalanceRepository(db)

	cryptos := services.NewCryptoService(cryptoRepo, cachedSource, caches)
	platforms := services.NewPlatformService(platformRepo, cryptos, caches)
	holdings := services.NewUserCryptoService(holdingRepo, platforms, cryptos, caches, cfg.InsightsPageSize)
	transfers := services.NewTransferService(holdingRepo, platforms, caches)
	insights := services.NewInsightsService(holdings, cryptos, platforms, cfg.InsightsPageSize)
	history := services.NewDateBalanceService(balanceRepo, insights, notifier)

	// refreshes bypass the market data cache
	refresher := services.NewPriceRefresher(cryptoRepo, coinGecko, caches, notifier, services.RefreshConfig{
		BatchSize: cfg.PriceRefreshBatchSize,
		Staleness: time.Duration(cfg.PriceRefreshStalenessMinutes) * time.Minute,
	})

	app.Scheduler = scheduler.NewScheduler(refresher, history, scheduler.Config{
		PriceRefreshCron:    cfg.PriceRefreshCron,
		BalanceSnapshotCron: cfg.BalanceSnapshotCron,
	})

	app.Deps = routes.Dependencies{
		Cryptos:     cryptos,
		Platforms:   platforms,
		UserCryptos: holdings,
		Transfers:   transfers,
		Insights:    insights,
		History:     history,
		Jobs:        app.Scheduler,
		JobLimiter:  middleware.NewRateLimiter(30*time.Second, 2, 10*time.Minute),
	}
	return app, nil
}

// Close stops the scheduler and releases the external connections
func (a *Application) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Printf("Error closing redis: %v", err)
		}
	}
}
