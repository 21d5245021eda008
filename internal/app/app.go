package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/ferag-backend/internal/config"
	"github.com/yungbote/ferag-backend/internal/data/db"
	"github.com/yungbote/ferag-backend/internal/data/repos"
	apihttp "github.com/yungbote/ferag-backend/internal/http"
	"github.com/yungbote/ferag-backend/internal/observability"
	"github.com/yungbote/ferag-backend/internal/pipeline"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
	"github.com/yungbote/ferag-backend/internal/temporalx/cyclerun"
	"github.com/yungbote/ferag-backend/internal/temporalx/temporalworker"
)

const (
	ComponentAPI    = "api"
	ComponentWorker = "worker"

	localBacklogPerWorker = 16
	redisPollInterval     = 15 * time.Second
)

type App struct {
	Log      *logger.Logger
	Cfg      config.Config
	DB       *gorm.DB
	Repos    repos.Set
	Clients  Clients
	Metrics  *observability.Metrics
	Stages   *pipeline.Stages
	Services Services
	Router   *gin.Engine

	component  string
	dbService  *db.Service
	localQueue *pipeline.LocalQueue
	otelStop   func(context.Context) error
}

// New wires every dependency of component (ComponentAPI or ComponentWorker).
func New(ctx context.Context, component string) (*App, error) {
	bootLog, err := logger.New("development")
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	bootLog.Info("Loading environment variables...")
	cfg, err := config.Load(bootLog)
	if err != nil {
		bootLog.Sync()
		return nil, err
	}
	log := bootLog
	if cfg.LogMode != "development" {
		if log, err = logger.New(cfg.LogMode); err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}
	log = log.With("component", component)

	otelStop := observability.InitOTel(ctx, log, cfg.Tracing, component)
	metrics := observability.New()

	dbService, err := db.Open(cfg.Database, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, fmt.Errorf("database automigrate: %w", err)
	}
	theDB := dbService.DB()
	if err := metrics.RegisterDB(theDB, "ferag"); err != nil {
		log.Warn("db stats collector not registered", "error", err)
	}

	reposet := wireRepos(theDB, log)

	clients, err := wireClients(ctx, cfg, log)
	if err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}

	a := &App{
		Log:       log,
		Cfg:       cfg,
		DB:        theDB,
		Repos:     reposet,
		Clients:   clients,
		Metrics:   metrics,
		component: component,
		dbService: dbService,
		otelStop:  otelStop,
	}

	needStages := component == ComponentWorker || cfg.PipelineQueue == config.QueueLocal
	if needStages {
		a.Stages = wireStages(theDB, cfg, log, reposet, clients, metrics)
	}
	if component == ComponentWorker {
		return a, nil
	}

	queue, err := a.wireQueue()
	if err != nil {
		a.Close()
		return nil, err
	}
	serviceset, err := wireServices(theDB, log, cfg, reposet, clients, queue, metrics)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Services = serviceset
	a.Router = wireRouter(cfg, log, metrics, wireHandlers(theDB, log, serviceset), wireMiddleware(log, serviceset))
	return a, nil
}

func (a *App) wireQueue() (pipeline.Queue, error) {
	if a.Cfg.PipelineQueue == config.QueueLocal {
		a.Log.Info("Using in-process pipeline queue", "workers", a.Cfg.WorkerConcurrency)
		a.localQueue = pipeline.NewLocalQueue(a.Stages, a.Cfg.WorkerConcurrency, a.Cfg.WorkerConcurrency*localBacklogPerWorker, a.Log)
		return a.localQueue, nil
	}
	if a.Clients.Temporal == nil {
		return nil, errors.New("temporal queue selected but no temporal client is configured")
	}
	return cyclerun.NewQueue(a.Clients.Temporal, a.Cfg.Temporal.TaskQueue, a.Cfg.StageTimeout)
}

// Serve runs the HTTP API (and the local queue workers, when selected) until
// ctx ends.
func (a *App) Serve(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized for serving")
	}
	if a.localQueue != nil {
		a.localQueue.Start(ctx)
	}
	if a.Clients.Redis != nil {
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis, redisPollInterval)
	}
	a.Log.Info("HTTP API listening", "addr", a.Cfg.HTTPAddr)
	err := apihttp.NewServerFromEngine(a.Router).Run(ctx, a.Cfg.HTTPAddr)
	if a.localQueue != nil {
		a.localQueue.Wait()
	}
	return err
}

// RunWorker polls the Temporal task queue until ctx ends.
func (a *App) RunWorker(ctx context.Context) error {
	if a == nil || a.Stages == nil {
		return fmt.Errorf("app not initialized as worker")
	}
	if a.Clients.Temporal == nil {
		return errors.New("worker requires TEMPORAL_ADDRESS")
	}
	runner, err := temporalworker.NewRunner(a.Log, a.Clients.Temporal, a.Cfg.Temporal, a.Stages, a.Cfg.WorkerConcurrency)
	if err != nil {
		return err
	}
	if err := runner.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.dbService != nil {
		_ = a.dbService.Close()
	}
	if a.otelStop != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelStop(shutdownCtx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
