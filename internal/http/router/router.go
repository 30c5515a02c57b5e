package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-backend/internal/config"
	"github.com/ignatzorin/freelance-backend/internal/http/handlers"
	"github.com/ignatzorin/freelance-backend/internal/http/middleware"
	"github.com/ignatzorin/freelance-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	worklogHandler *handlers.WorklogHandler,
	disputeHandler *handlers.DisputeHandler,
	adminDisputeHandler *handlers.AdminDisputeHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")
	api.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))

	// Маршруты участников контракта.
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		contracts := protected.Group("/contracts/:contractId")

		contracts.POST("/worklogs", worklogHandler.Submit)
		contracts.GET("/worklogs", worklogHandler.List)
		contracts.GET("/worklogs/validation", worklogHandler.CheckValidation)
		contracts.GET("/worklogs/:worklogId", worklogHandler.Get)
		contracts.POST("/worklogs/:worklogId/review", worklogHandler.Review)
		contracts.POST("/worklogs/:worklogId/dispute", worklogHandler.RaiseDispute)

		contracts.POST("/disputes", disputeHandler.Create)
		contracts.GET("/disputes", disputeHandler.List)
		contracts.GET("/escrow", disputeHandler.ListLedger)
		contracts.GET("/activity", disputeHandler.ListActivity)
		contracts.POST("/cancel-with-dispute", disputeHandler.CancelWithDispute)
		contracts.POST("/cancelled-dispute", disputeHandler.RaiseForCancelled)

		protected.GET("/disputes/:disputeId", disputeHandler.Get)
	}

	// Админские маршруты резолюции споров.
	admin := api.Group("/admin")
	admin.Use(middleware.AdminKeyMiddleware(cfg.AdminKeyHash))
	{
		admin.POST("/disputes/:disputeId/review", adminDisputeHandler.BeginReview)
		admin.POST("/disputes/:disputeId/resolve", adminDisputeHandler.Resolve)
		admin.POST("/disputes/:disputeId/release-hourly", adminDisputeHandler.ReleaseHourly)
		admin.POST("/disputes/:disputeId/reject", adminDisputeHandler.Reject)
	}

	return r
}
