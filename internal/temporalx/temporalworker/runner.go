package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/yungbote/ferag-backend/internal/config"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
	"github.com/yungbote/ferag-backend/internal/temporalx"
	"github.com/yungbote/ferag-backend/internal/temporalx/cyclerun"
)

const (
	startMaxWait    = 60 * time.Second
	startBackoff    = 250 * time.Millisecond
	startBackoffMax = 5 * time.Second
)

// Runner polls the cycle task queue and executes chains in this process.
type Runner struct {
	log         *logger.Logger
	tc          temporalsdkclient.Client
	cfg         config.Temporal
	stages      cyclerun.StageRunner
	concurrency int
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, cfg config.Temporal, stages cyclerun.StageRunner, concurrency int) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if stages == nil {
		return nil, fmt.Errorf("temporal worker missing stages")
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{log: log, tc: tc, cfg: cfg, stages: stages, concurrency: concurrency}, nil
}

// Start begins polling and returns once the worker is up. The worker stops
// when ctx ends.
func (r *Runner) Start(ctx context.Context) error {
	r.log.Info("Starting Temporal worker", "address", r.cfg.Address, "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue)

	if r.cfg.AutoRegisterNamespace {
		if err := temporalx.EnsureNamespace(ctx, r.cfg, r.log); err != nil {
			r.log.Warn("Temporal namespace ensure failed; worker will retry on start", "namespace", r.cfg.Namespace, "error", err)
		}
	}

	deadline := time.Now().Add(startMaxWait)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue, "attempts", attempt)
			return nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		notFound := errors.As(startErr, &nfe)
		if notFound && r.cfg.AutoRegisterNamespace {
			_ = temporalx.EnsureNamespace(ctx, r.cfg, r.log)
		}

		if time.Now().After(deadline) {
			if notFound {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", r.cfg.Namespace, startErr)
			}
			return startErr
		}
		r.log.Warn("Temporal worker failed to start; retrying", "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue, "attempt", attempt, "error", startErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(attempt)):
		}
	}
}

func (r *Runner) newWorker() worker.Worker {
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     r.concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: r.concurrency,
	})
	cyclerun.Register(w, &cyclerun.Activities{Stages: r.stages})
	return w
}

func backoff(attempt int) time.Duration {
	sleep := startBackoff
	for i := 1; i < attempt; i++ {
		sleep *= 2
		if sleep >= startBackoffMax {
			return startBackoffMax
		}
	}
	return sleep
}
