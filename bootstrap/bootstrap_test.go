package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/config"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/models"
	"gorm.io/gorm"
)

func openDB(t *testing.T, cfg *config.Config) *gorm.DB {
	t.Helper()
	db, err := config.InitDB(cfg)
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	if err := models.MigrateModels(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Environment:           "production",
		DBDriver:              "sqlite",
		SQLitePath:            filepath.Join(t.TempDir(), "tracker.db"),
		CacheBackend:          "memory",
		CoinGeckoPlan:         "demo",
		PriceRefreshBatchSize: 12,
		InsightsPageSize:      10,
	}
}

func TestBuildWithMemoryCache(t *testing.T) {
	cfg := testConfig(t)
	app, err := Build(cfg, openDB(t, cfg), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()

	if app.Deps.Platforms == nil || app.Deps.Insights == nil || app.Deps.Jobs == nil || app.Scheduler == nil {
		t.Fatalf("incomplete application: %+v", app.Deps)
	}

	// a fresh database has nothing to value
	balances, err := app.Deps.Insights.TotalBalances(context.Background())
	if err != nil {
		t.Fatalf("TotalBalances: %v", err)
	}
	if !balances.TotalUSDBalance.IsZero() {
		t.Errorf("usd = %s, want 0", balances.TotalUSDBalance)
	}
}

func TestBuildWithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig(t)
	cfg.CacheBackend = "redis"
	cfg.RedisAddr = mr.Addr()

	app, err := Build(cfg, openDB(t, cfg), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()

	ctx := context.Background()
	if _, err := app.Deps.Platforms.SavePlatform(ctx, "binance"); err != nil {
		t.Fatalf("SavePlatform: %v", err)
	}
	platforms, err := app.Deps.Platforms.RetrieveAllPlatforms(ctx)
	if err != nil || len(platforms) != 1 {
		t.Fatalf("RetrieveAllPlatforms = %v, %v", platforms, err)
	}
	if len(mr.Keys()) == 0 {
		t.Error("nothing cached in redis")
	}
}

func TestBuildFailsWithoutRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.CacheBackend = "redis"
	cfg.RedisAddr = "127.0.0.1:1"

	if _, err := Build(cfg, openDB(t, cfg), nil); err == nil {
		t.Fatal("expected redis connection error")
	}
}
