package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/opexam/opexam-backend/internal/config"
	"github.com/opexam/opexam-backend/internal/handler"
	"github.com/opexam/opexam-backend/internal/middleware"
	"github.com/opexam/opexam-backend/internal/response"
	"github.com/opexam/opexam-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	Bank    *handler.BankHandler
	Result  *handler.ResultHandler
	WS      *handler.WSHandler
	System  *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	tokens *service.TokenService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/healthz", handlers.System.Health)

	// Rate limiter for session creation (30 requests per minute per IP).
	startLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Bank Group (No Auth) ───────────────────────────────────────
	banks := router.Group("/api/v1/banks")
	{
		banks.POST("", handlers.Bank.Create)
		banks.GET("", handlers.Bank.List)
		banks.GET("/:bank_id", handlers.Bank.Get)
		banks.PUT("/:bank_id/questions", handlers.Bank.ReplaceQuestions)
	}

	// ─── 2. Session Group (Session Token) ──────────────────────────────
	sessions := router.Group("/api/v1/sessions")
	{
		sessions.POST("", startLimiter.Middleware(), handlers.Session.Start)

		// Everything below is scoped to one session and requires a token
		// issued for that exact session.
		scoped := sessions.Group("/:session_id")
		scoped.Use(middleware.RequireSessionToken(tokens))
		{
			scoped.GET("", handlers.Session.GetState)
			scoped.POST("/answers", handlers.Session.SubmitAnswer)
			scoped.POST("/flag", handlers.Session.ToggleFlag)
			scoped.POST("/position", handlers.Session.Move)
			scoped.POST("/finish", handlers.Session.Finish)
			scoped.POST("/cancel", handlers.Session.Cancel)
			scoped.POST("/resume", handlers.Session.Resume)
		}
	}

	// ─── 3. WebSocket Group (Session Token via Query) ──────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireSessionToken(tokens))
	{
		ws.GET("/sessions/:session_id/stream", handlers.WS.Stream)
	}

	// ─── 4. Results Group (No Auth) ────────────────────────────────────
	results := router.Group("/api/v1/results")
	{
		results.GET("/:result_id", handlers.Result.Get)
	}

	return router
}
