package router

import (
	"net/http"
	"time"

	"github.com/examind/examind-backend/internal/config"
	"github.com/examind/examind-backend/internal/handler"
	"github.com/examind/examind-backend/internal/middleware"
	"github.com/examind/examind-backend/internal/response"
	"github.com/examind/examind-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Access  *handler.AccessHandler
	Session *handler.SessionHandler
	Advisor *handler.AdvisorHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
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
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for the unauthenticated surfaces (30 requests per minute per IP).
	publicLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Public Group (Rate Limited, No Auth) ───────────────────────
	publicAPI := router.Group("/api/v1/public")
	publicAPI.Use(publicLimiter.Middleware())
	{
		publicAPI.POST("/exams/:exam_id/register", handlers.Access.Register)
	}

	// ─── 2. Auth Group (Rate Limited) ──────────────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(publicLimiter.Middleware())
	{
		auth.POST("/learner/login", handlers.Auth.LearnerLogin)
		auth.POST("/admin/login", handlers.Auth.AdminLogin)
	}
	router.GET("/api/v1/auth/me", middleware.RequireIdentityJWT(authService), handlers.Auth.Me)

	// ─── 3. Session Group (Learner or Registrant JWT) ──────────────────
	sessionAPI := router.Group("/api/v1/sessions")
	sessionAPI.Use(middleware.RequireIdentityJWT(authService))
	{
		sessionAPI.POST("", handlers.Session.Start)
		sessionAPI.GET("/active", handlers.Session.Active)
		sessionAPI.POST("/:session_id/answers", handlers.Session.SubmitAnswer)
		sessionAPI.GET("/:session_id/answers", handlers.Session.ListAnswers)
		sessionAPI.POST("/:session_id/events", handlers.Session.RecordEvent)
		sessionAPI.POST("/:session_id/submit", handlers.Session.Submit)
		sessionAPI.GET("/:session_id/result", handlers.Session.Result)
	}

	// ─── 4. Advisor Group (Learner or Registrant JWT) ──────────────────
	advisorAPI := router.Group("/api/v1/advisor")
	advisorAPI.Use(middleware.RequireIdentityJWT(authService))
	{
		advisorAPI.POST("/explain", handlers.Advisor.Explain)
	}

	// ─── 5. WebSocket Group (Identity WS Auth) ─────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireIdentityWSAuth(authService))
	{
		ws.GET("/sessions/:session_id/stream", handlers.WS.SessionStream)
	}

	// ─── 6. Admin Group (Admin JWT) ────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.POST("/sessions/:session_id/abandon", handlers.Session.Abandon)
	}

	return router
}
