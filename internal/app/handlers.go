package app

import (
	"gorm.io/gorm"

	httpH "github.com/yungbote/ferag-backend/internal/http/handlers"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Auth     *httpH.AuthHandler
	Rag      *httpH.RagHandler
	Cycle    *httpH.CycleHandler
	Task     *httpH.TaskHandler
	Realtime *httpH.RealtimeHandler
	Chat     *httpH.ChatHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(db),
		Auth:     httpH.NewAuthHandler(services.Auth),
		Rag:      httpH.NewRagHandler(services.Rag),
		Cycle:    httpH.NewCycleHandler(services.Cycle),
		Task:     httpH.NewTaskHandler(services.Task),
		Realtime: httpH.NewRealtimeHandler(log, services.Task),
		Chat:     httpH.NewChatHandler(services.Chat),
	}
}
