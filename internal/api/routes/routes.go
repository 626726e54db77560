package routes

import (
	"github.com/gin-gonic/gin"

	"ledger/internal/api/handlers"
	"ledger/internal/api/middleware"
	"ledger/internal/config"
)

// RegisterRoutes registers the HTTP edge's endpoints against svc.
func RegisterRoutes(router *gin.Engine, cfg *config.Config, svc handlers.AccountService) {
	router.Use(middleware.CORS(cfg))
	router.Use(middleware.Metrics())
	router.Use(middleware.PrometheusMiddleware())

	router.POST("/accounts", handlers.MakeCreateAccountHandler(svc))
	router.GET("/accounts/:id", handlers.MakeGetAccountHandler(svc))
	router.POST("/accounts/:id/deposits", handlers.MakeDepositHandler(svc))
	router.POST("/accounts/:id/withdrawals", handlers.MakeWithdrawHandler(svc))

	router.GET("/metrics", handlers.MakeMetricsHandler())
	router.GET("/prometheus", handlers.PrometheusHandler())
}
