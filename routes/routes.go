package routes

import (
	"github.com/gin-gonic/gin"

	"stock_ingestion_backend/controllers"
	"stock_ingestion_backend/middleware"
)

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, stats controllers.StatsSource, schedule controllers.ScheduleSource, limiter *middleware.RateLimiter) {
	statsController := controllers.NewStatsController(stats, schedule)

	router.GET("/", statsController.GetRoot)

	api := router.Group("/api")
	api.GET("/health", statsController.GetHealth)

	limited := api.Group("")
	if limiter != nil {
		limited.Use(middleware.RateLimitMiddleware(limiter))
	}
	{
		limited.GET("/stats", statsController.GetStats)
		limited.GET("/scheduler/status", statsController.GetSchedulerStatus)
	}
}
