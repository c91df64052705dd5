package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Port        string
	Environment string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	CoinGeckoAPIKey            string
	CoinGeckoPlan              string
	CoinGeckoBaseURL           string
	CoinGeckoRequestsPerMinute int
	CoinGeckoTimeoutSeconds    int

	CacheBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PriceRefreshCron             string
	PriceRefreshBatchSize        int
	PriceRefreshStalenessMinutes int
	BalanceSnapshotCron          string
	InsightsPageSize             int
}

var AppConfig *Config
var DB *gorm.DB

// LoadConfig loads environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "crypto_balance_tracker"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "crypto_balance_tracker.db"),

		CoinGeckoAPIKey:            getEnv("COINGECKO_API_KEY", ""),
		CoinGeckoPlan:              strings.ToLower(getEnv("COINGECKO_PLAN", "demo")),
		CoinGeckoBaseURL:           getEnv("COINGECKO_BASE_URL", ""),
		CoinGeckoRequestsPerMinute: getEnvInt("COINGECKO_REQUESTS_PER_MINUTE", 30),
		CoinGeckoTimeoutSeconds:    getEnvInt("COINGECKO_TIMEOUT_SECONDS", 10),

		CacheBackend:  strings.ToLower(getEnv("CACHE_BACKEND", "memory")),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		PriceRefreshCron:             getEnv("PRICE_REFRESH_CRON", "*/3 * * * *"),
		PriceRefreshBatchSize:        getEnvInt("PRICE_REFRESH_BATCH_SIZE", 12),
		PriceRefreshStalenessMinutes: getEnvInt("PRICE_REFRESH_STALENESS_MINUTES", 5),
		BalanceSnapshotCron:          getEnv("BALANCE_SNAPSHOT_CRON", "0 23 * * *"),
		InsightsPageSize:             getEnvInt("INSIGHTS_PAGE_SIZE", 10),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	AppConfig = config
	return config, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.CacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported CACHE_BACKEND %q", c.CacheBackend)
	}
	if c.PriceRefreshBatchSize <= 0 {
		return fmt.Errorf("PRICE_REFRESH_BATCH_SIZE must be positive, got %d", c.PriceRefreshBatchSize)
	}
	if c.InsightsPageSize <= 0 {
		return fmt.Errorf("INSIGHTS_PAGE_SIZE must be positive, got %d", c.InsightsPageSize)
	}
	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// InitDB initializes database connection
func InitDB(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		log.Printf("Opening sqlite database: %s", cfg.SQLitePath)
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		// Log connection info (masked for security)
		log.Printf("Connecting to database: host=%s port=%s user=%s dbname=%s",
			maskHost(cfg.DBHost),
			cfg.DBPort,
			cfg.DBUser,
			cfg.DBName,
		)
		dialector = postgres.Open(postgresDSN(cfg))
	}

	var logLevel logger.LogLevel
	if cfg.IsProduction() {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		log.Printf("Database connection error: %v", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection with ping
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Failed to get underlying database: %v", err)
		return nil, fmt.Errorf("failed to get database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		log.Printf("Database ping failed: %v", err)
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	log.Printf("Database connection verified successfully")
	DB = db
	return db, nil
}

func postgresDSN(cfg *Config) string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.DBHost,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBPort,
		cfg.DBSSLMode,
	)
}

// maskHost masks host for logging, preserving domain structure
func maskHost(host string) string {
	if len(host) <= 3 {
		return "***"
	}
	if len(host) <= 15 {
		return host[:3] + "***"
	}
	return host[:8] + "***" + host[len(host)-10:]
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer for %s=%q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}
