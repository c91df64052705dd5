// Package api is the serverless entry point. The router is built by the
// first request that gets through setup; scheduled jobs are left to the
// platform's cron hitting /api/v1/jobs/*.
package api

import (
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/bootstrap"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/config"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/models"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/routes"
)

var (
	router *gin.Engine
	initMu sync.Mutex

	// setupRouter is replaced in tests
	setupRouter = setup
)

func setup() (*gin.Engine, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	if err := models.MigrateModels(db); err != nil {
		closeDB()
		return nil, err
	}

	app, err := bootstrap.Build(cfg, db, nil)
	if err != nil {
		closeDB()
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	return NewRouter(app.Deps), nil
}

// loadRouter returns the router, building it on first use. A failed build is
// retried by the next request.
func loadRouter() (*gin.Engine, error) {
	initMu.Lock()
	defer initMu.Unlock()

	if router != nil {
		return router, nil
	}
	r, err := setupRouter()
	if err != nil {
		return nil, err
	}
	router = r
	return router, nil
}

// NewRouter builds the API router without background jobs
func NewRouter(deps routes.Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	routes.SetupRoutes(r, deps)
	return r
}

// Handler is the serverless function handler
func Handler(w http.ResponseWriter, r *http.Request) {
	handler, err := loadRouter()
	if err != nil {
		log.Printf("Initialization failed: %v", err)
		http.Error(w, `{"error":"service unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	handler.ServeHTTP(w, r)
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
