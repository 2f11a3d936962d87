package app

import (
	"gorm.io/gorm"

	apphttp "github.com/yungbote/reviewgate-backend/internal/http"
	httpH "github.com/yungbote/reviewgate-backend/internal/http/handlers"
	httpMW "github.com/yungbote/reviewgate-backend/internal/http/middleware"
	"github.com/yungbote/reviewgate-backend/internal/observability"
	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Review   *httpH.ReviewHandler
	Learning *httpH.LearningHandler
	AI       *httpH.AIHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(db),
		Review: httpH.NewReviewHandlerWithDeps(httpH.ReviewHandlerDeps{
			Log:     log,
			Reviews: services.Review,
			Queue:   services.Queue,
		}),
		Learning: httpH.NewLearningHandlerWithDeps(httpH.LearningHandlerDeps{
			Log:      log,
			Learning: services.Learning,
		}),
		AI: httpH.NewAIHandlerWithDeps(httpH.AIHandlerDeps{
			Log:    log,
			Usage:  services.Usage,
			Assist: services.Assist,
		}),
	}
}

func wireMiddleware(log *logger.Logger, cfg *Config) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, cfg.Auth.JWTSecret),
	}
}

func wireServer(log *logger.Logger, cfg *Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *apphttp.Server {
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		CORSOrigins:     cfg.Server.CORSOrigins,
		TracingEnabled:  cfg.Otel.Enabled,
		ServiceName:     cfg.Otel.ServiceName,
		AuthMiddleware:  middleware.Auth,
		HealthHandler:   handlers.Health,
		ReviewHandler:   handlers.Review,
		LearningHandler: handlers.Learning,
		AIHandler:       handlers.AI,
	})
}
