package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/ferag-backend/internal/config"
	"github.com/yungbote/ferag-backend/internal/data/repos"
	"github.com/yungbote/ferag-backend/internal/observability"
	"github.com/yungbote/ferag-backend/internal/pipeline"
	"github.com/yungbote/ferag-backend/internal/pipeline/extract"
	"github.com/yungbote/ferag-backend/internal/pipeline/schema"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
	"github.com/yungbote/ferag-backend/internal/services"
)

type Services struct {
	Auth  services.AuthService
	Rag   services.RagService
	Cycle services.CycleService
	Task  services.TaskService
	Chat  services.ChatService
}

// wireStages builds the four pipeline stages. The API process needs them
// only for the local queue; the worker always does.
func wireStages(db *gorm.DB, cfg config.Config, log *logger.Logger, reposet repos.Set, clients Clients, metrics *observability.Metrics) *pipeline.Stages {
	log.Info("Wiring pipeline stages...")
	extractor := extract.NewRunner(extract.RunnerConfig{
		TemplateDir: cfg.GraphRAGTemplateDir,
		LLMBaseURL:  cfg.LLM.APIURL,
		LLMModel:    cfg.LLM.Model,
		Timeout:     cfg.StageTimeout,
	}, extract.CommandIndexer{Bin: cfg.GraphRAGBin, Log: log}, log)

	return pipeline.NewStages(pipeline.Deps{
		DB:           db,
		Tasks:        reposet.Task,
		Cycles:       reposet.Cycle,
		Bus:          clients.Bus,
		Extractor:    extractor,
		Inducer:      schema.NewInducer(clients.LLM, log),
		Datasets:     clients.Datasets,
		Metrics:      metrics,
		Log:          log,
		WorkRoot:     cfg.WorkDir,
		StageTimeout: cfg.StageTimeout,
	})
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg config.Config, reposet repos.Set, clients Clients, queue pipeline.Queue, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")
	auth, err := services.NewAuthService(log, reposet.User, cfg.JWTSecretKey, cfg.AccessTokenTTL)
	if err != nil {
		return Services{}, fmt.Errorf("init auth service: %w", err)
	}
	return Services{
		Auth: auth,
		Rag:  services.NewRagService(db, log, reposet, clients.Datasets),
		Cycle: services.NewCycleService(services.CycleServiceDeps{
			DB:       db,
			Log:      log,
			Repos:    reposet,
			Queue:    queue,
			Datasets: clients.Datasets,
			Metrics:  metrics,
			WorkRoot: cfg.WorkDir,
		}),
		Task: services.NewTaskService(log, reposet, clients.Bus),
		Chat: services.NewChatService(log, reposet.Rag, clients.Fuseki, clients.LLM, metrics),
	}, nil
}
