package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/ferag-backend/internal/http/handlers"
	httpMW "github.com/yungbote/ferag-backend/internal/http/middleware"
	"github.com/yungbote/ferag-backend/internal/observability"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	CORSOrigins []string
	// ServiceName enables otelgin spans when set.
	ServiceName string

	AuthHandler     *httpH.AuthHandler
	AuthMiddleware  *httpMW.AuthMiddleware
	RagHandler      *httpH.RagHandler
	CycleHandler    *httpH.CycleHandler
	TaskHandler     *httpH.TaskHandler
	RealtimeHandler *httpH.RealtimeHandler
	ChatHandler     *httpH.ChatHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	r.Use(httpMW.Metrics(cfg.Metrics))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/auth/register", cfg.AuthHandler.Register)
			api.POST("/auth/login", cfg.AuthHandler.Login)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.AuthHandler != nil {
			protected.GET("/auth/me", cfg.AuthHandler.Me)
		}

		// RAG instances
		if cfg.RagHandler != nil {
			protected.GET("/rags", cfg.RagHandler.List)
			protected.POST("/rags", cfg.RagHandler.Create)
			protected.GET("/rags/:id", cfg.RagHandler.Get)
			protected.DELETE("/rags/:id", cfg.RagHandler.Delete)
			protected.GET("/rags/:id/members", cfg.RagHandler.ListMembers)
			protected.POST("/rags/:id/members", cfg.RagHandler.AddMember)
		}

		// Upload cycles
		if cfg.CycleHandler != nil {
			protected.POST("/rags/:id/upload", cfg.CycleHandler.Upload)
			protected.GET("/rags/:id/cycles", cfg.CycleHandler.List)
			protected.POST("/rags/:id/cycles/:cycle_id/approve", cfg.CycleHandler.Approve)
			protected.POST("/rags/:id/cycles/:cycle_id/reject", cfg.CycleHandler.Reject)
		}

		// Tasks
		if cfg.TaskHandler != nil {
			protected.GET("/rags/:id/tasks", cfg.TaskHandler.ListForRag)
			protected.GET("/tasks/:id", cfg.TaskHandler.GetTask)
		}

		// Realtime (SSE + websocket)
		if cfg.RealtimeHandler != nil {
			protected.GET("/tasks/:id/events", cfg.RealtimeHandler.TaskEvents)
			protected.GET("/ws/tasks/:id", cfg.RealtimeHandler.TaskSocket)
		}

		// Chat
		if cfg.ChatHandler != nil {
			protected.POST("/rags/:id/chat", cfg.ChatHandler.Ask)
		}
	}

	return r
}
