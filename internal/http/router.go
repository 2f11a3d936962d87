package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/reviewgate-backend/internal/http/handlers"
	httpMW "github.com/yungbote/reviewgate-backend/internal/http/middleware"
	"github.com/yungbote/reviewgate-backend/internal/observability"
	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	CORSOrigins    []string
	TracingEnabled bool
	ServiceName    string

	AuthMiddleware  *httpMW.AuthMiddleware
	HealthHandler   *httpH.HealthHandler
	ReviewHandler   *httpH.ReviewHandler
	LearningHandler *httpH.LearningHandler
	AIHandler       *httpH.AIHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	protected := r.Group("/api")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Reviews
		if cfg.ReviewHandler != nil {
			protected.POST("/topics/:id/review", cfg.ReviewHandler.ReviewTopic)
			protected.GET("/topics/:id/reviews", cfg.ReviewHandler.ListReviews)
			protected.GET("/review/queue", cfg.ReviewHandler.GetQueue)
			protected.PUT("/review/preferences", cfg.ReviewHandler.SetPreferences)
		}

		// Learning model
		if cfg.LearningHandler != nil {
			protected.POST("/sessions/:id/complete", cfg.LearningHandler.CompleteSession)
			protected.GET("/learning-model", cfg.LearningHandler.Get)
			protected.PUT("/learning-model/signals/:signal", cfg.LearningHandler.SetSignal)
			protected.DELETE("/learning-model", cfg.LearningHandler.Reset)
			protected.GET("/learning-model/export", cfg.LearningHandler.Export)
		}

		// AI (rate limited)
		if cfg.AIHandler != nil {
			protected.GET("/ai/rate-limit", cfg.AIHandler.RateLimit)
			protected.GET("/ai/usage", cfg.AIHandler.Usage)
			protected.POST("/ai/explanations", cfg.AIHandler.Explain)
			protected.POST("/ai/answer-evaluations", cfg.AIHandler.EvaluateAnswer)
		}
	}

	return r
}
