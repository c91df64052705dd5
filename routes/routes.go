package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/controllers"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/middleware"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/services"
)

// Dependencies holds the services the API is built on
type Dependencies struct {
	Cryptos     *services.CryptoService
	Platforms   *services.PlatformService
	UserCryptos *services.UserCryptoService
	Transfers   *services.TransferService
	Insights    *services.InsightsService
	History     *services.DateBalanceService
	Jobs        controllers.JobRunner
	JobLimiter  *middleware.RateLimiter
}

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	// Initialize controllers
	platformController := controllers.NewPlatformController(deps.Platforms)
	userCryptoController := controllers.NewUserCryptoController(deps.UserCryptos, deps.Transfers)
	insightsController := controllers.NewInsightsController(deps.Insights, deps.History)
	coinController := controllers.NewCoinController(deps.Cryptos)
	jobController := controllers.NewJobController(deps.Jobs)

	// API v1 group
	api := router.Group("/api/v1")
	{
		// Platform routes
		platforms := api.Group("/platforms")
		{
			platforms.GET("", platformController.GetPlatforms)
			platforms.GET("/:id", platformController.GetPlatform)
			platforms.POST("", platformController.CreatePlatform)
			platforms.PUT("/:id", platformController.UpdatePlatform)
			platforms.DELETE("/:id", platformController.DeletePlatform)
		}

		// Holding routes
		cryptos := api.Group("/cryptos")
		{
			cryptos.GET("", userCryptoController.GetUserCryptos)
			cryptos.POST("", userCryptoController.CreateUserCrypto)
			cryptos.POST("/transfer", userCryptoController.TransferCrypto)
			cryptos.GET("/:id", userCryptoController.GetUserCrypto)
			cryptos.PUT("/:id", userCryptoController.UpdateUserCrypto)
			cryptos.DELETE("/:id", userCryptoController.DeleteUserCrypto)
		}

		// Insight routes
		insights := api.Group("/insights")
		{
			insights.GET("/balances", insightsController.GetTotalBalances)
			insights.GET("/dates-balances", insightsController.GetDatesBalances)
			insights.GET("/platforms/balances", insightsController.GetPlatformsBalancesInsights)
			insights.GET("/platforms/:id", insightsController.GetPlatformInsights)
			insights.GET("/cryptos", insightsController.GetCryptosInsightsPage)
			insights.GET("/cryptos/balances", insightsController.GetCryptosBalancesInsights)
			insights.GET("/cryptos/:id", insightsController.GetCryptoInsights)
		}

		// Coin catalogue routes
		coins := api.Group("/coins")
		{
			coins.GET("", coinController.GetCoins)
			coins.GET("/:id", coinController.GetCoin)
			coins.GET("/:id/stored", coinController.GetStoredCrypto)
		}

		// Manual job triggers
		jobs := api.Group("/jobs")
		if deps.JobLimiter != nil {
			jobs.Use(middleware.RateLimit(deps.JobLimiter))
		}
		{
			jobs.POST("/price-refresh", jobController.TriggerPriceRefresh)
			jobs.POST("/balance-snapshot", jobController.TriggerBalanceSnapshot)
		}
	}
}
