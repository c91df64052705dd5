package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/bootstrap"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/config"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/models"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/routes"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/services/realtime"
)

// dbInitialized tracks whether the database and the routes on top of it are
// ready. /ready reads it from request goroutines.
var dbInitialized bool
var dbInitMutex sync.RWMutex

func main() {
	log.Println("==============================================")
	log.Println("  Crypto Balance Tracker - Starting...")
	log.Println("==============================================")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config load failed: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	hub := realtime.NewHub()

	// Every route is registered before the server starts. The API engine is
	// built in the background and published through apiRouter.
	var apiRouter atomic.Pointer[gin.Engine]
	router := newRouter(hub, &apiRouter)

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	go func() {
		log.Printf("Server listening on 0.0.0.0:%s", cfg.Port)
		log.Println("==============================================")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Initialize database and setup routes in background
	var (
		app   *bootstrap.Application
		appMu sync.Mutex
	)
	stopCleanup := make(chan struct{})
	go func() {
		db, err := config.InitDB(cfg)
		if err != nil {
			log.Printf("ERROR: Database connection failed: %v", err)
			log.Println("Service will continue in limited mode (health check only)")
			return
		}

		log.Println("Running database migrations...")
		if err := models.MigrateModels(db); err != nil {
			log.Printf("ERROR: Migration failed: %v", err)
			return
		}
		log.Println("Database migrations completed successfully")

		built, err := bootstrap.Build(cfg, db, hub)
		if err != nil {
			log.Printf("ERROR: Application setup failed: %v", err)
			return
		}

		api := gin.New()
		routes.SetupRoutes(api, built.Deps)
		apiRouter.Store(api)
		built.Deps.JobLimiter.StartCleanup(10*time.Minute, stopCleanup)

		if err := built.Scheduler.Start(); err != nil {
			log.Printf("ERROR: Scheduler start failed: %v", err)
		}

		appMu.Lock()
		app = built
		appMu.Unlock()

		// Mark database as ready
		dbInitMutex.Lock()
		dbInitialized = true
		dbInitMutex.Unlock()

		log.Println("Application fully initialized with database")
	}()

	// Graceful shutdown
	waitForSignal()
	close(stopCleanup)

	appMu.Lock()
	if app != nil {
		app.Close()
	}
	appMu.Unlock()

	hub.Shutdown()
	shutdownServer(server)
}

// newRouter creates the server router. Requests outside the health and
// websocket endpoints go to the engine in api, or get 503 while it is nil.
func newRouter(hub *realtime.Hub, api *atomic.Pointer[gin.Engine]) *gin.Engine {
	router := gin.New()

	// Add middlewares
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestLogger())

	// Health check endpoints answer while the database is initialized in background
	setupHealthEndpoints(router)

	router.GET("/ws", func(c *gin.Context) {
		hub.ServeWS(c.Writer, c.Request)
	})

	router.NoRoute(func(c *gin.Context) {
		engine := api.Load()
		if engine == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Service is starting, database not initialized",
			})
			return
		}
		engine.ServeHTTP(c.Writer, c.Request)
	})
	return router
}

// setupHealthEndpoints registers liveness and readiness probes
func setupHealthEndpoints(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		dbInitMutex.RLock()
		ready := dbInitialized
		dbInitMutex.RUnlock()

		if !ready || config.DB == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Database not initialized",
			})
			return
		}

		sqlDB, err := config.DB.DB()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Database connection error",
			})
			return
		}

		if err := sqlDB.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Database ping failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
		})
	})
}

// corsMiddleware returns a CORS middleware handler
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-Requested-With")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestLogger returns a request logging middleware
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip logging for health checks to reduce noise
		path := c.Request.URL.Path
		if path == "/health" || path == "/ready" || path == "/ws" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		// Only log errors or slow requests in production
		if c.Writer.Status() >= 400 || duration > 1*time.Second || gin.Mode() != gin.ReleaseMode {
			log.Printf("%s %s %d %v", c.Request.Method, path, c.Writer.Status(), duration)
		}
	}
}

func waitForSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("Received signal %v, shutting down gracefully...", sig)
}

// shutdownServer stops the HTTP server and closes the database connection
func shutdownServer(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if config.DB != nil {
		sqlDB, err := config.DB.DB()
		if err == nil {
			sqlDB.Close()
			log.Println("Database connection closed")
		}
	}

	log.Println("Server shutdown completed")
}
