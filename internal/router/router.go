package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/skillbase/skillbase-backend/internal/auth"
	"github.com/skillbase/skillbase-backend/internal/config"
	"github.com/skillbase/skillbase-backend/internal/handler"
	"github.com/skillbase/skillbase-backend/internal/middleware"
	"github.com/skillbase/skillbase-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session    *handler.SessionHandler
	Assessment *handler.AssessmentHandler
	WS         *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(verifier *auth.Verifier, handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

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

	// Session starts are rate limited per IP to blunt access code guessing.
	startLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Candidate routes.
	candidateAPI := router.Group("/api/v1")
	candidateAPI.Use(middleware.RequireAuth(verifier), middleware.RequireRole(auth.RoleCandidate))
	{
		candidateAPI.POST("/assessments/:assessment_id/sessions",
			startLimiter.Middleware(),
			handlers.Session.StartSession,
		)
		candidateAPI.GET("/sessions/:session_id", handlers.Session.GetState)
		candidateAPI.POST("/sessions/:session_id/answers", handlers.Session.SubmitAnswer)
		candidateAPI.POST("/sessions/:session_id/complete", handlers.Session.CompleteSession)
		candidateAPI.GET("/sessions/:session_id/percentile", handlers.Session.GetPercentile)
		candidateAPI.POST("/sessions/:session_id/tab-switch", handlers.Session.RecordTabSwitch)
	}

	// Org admin routes.
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAuth(verifier), middleware.RequireRole(auth.RoleOrgAdmin))
	{
		adminAPI.GET("/assessments", handlers.Assessment.ListAssessments)
		adminAPI.POST("/assessments", handlers.Assessment.CreateAssessment)
		adminAPI.GET("/assessments/:assessment_id", handlers.Assessment.GetAssessment)
		adminAPI.POST("/assessments/:assessment_id/publish", handlers.Assessment.PublishAssessment)
		adminAPI.POST("/assessments/:assessment_id/archive", handlers.Assessment.ArchiveAssessment)
		adminAPI.GET("/assessments/:assessment_id/results", handlers.Assessment.ListResults)
		adminAPI.POST("/sessions/sweep", handlers.Assessment.SweepSessions)
	}

	// WebSocket routes authenticate via ?token= since browsers cannot set
	// headers on upgrade requests.
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(verifier))
	{
		ws.GET("/admin/assessments/:assessment_id/events", handlers.WS.MonitorAssessment)
	}

	return router
}
