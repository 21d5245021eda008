package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/ferag-backend/internal/config"
	apihttp "github.com/yungbote/ferag-backend/internal/http"
	"github.com/yungbote/ferag-backend/internal/observability"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
)

func wireRouter(cfg config.Config, log *logger.Logger, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *gin.Engine {
	log.Info("Wiring router...")
	rc := apihttp.RouterConfig{
		Log:         log,
		Metrics:     metrics,
		CORSOrigins: cfg.CORSOrigins,

		AuthHandler:     handlers.Auth,
		AuthMiddleware:  middleware.Auth,
		RagHandler:      handlers.Rag,
		CycleHandler:    handlers.Cycle,
		TaskHandler:     handlers.Task,
		RealtimeHandler: handlers.Realtime,
		ChatHandler:     handlers.Chat,
		HealthHandler:   handlers.Health,
	}
	if cfg.Tracing.Enabled {
		rc.ServiceName = cfg.Tracing.ServiceName
	}
	return apihttp.NewRouter(rc)
}
