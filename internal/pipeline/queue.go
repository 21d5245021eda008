package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yungbote/ferag-backend/internal/platform/logger"
)

var (
	ErrQueueFull    = errors.New("pipeline queue full")
	ErrQueueStopped = errors.New("pipeline queue not running")
)

// Queue schedules the stage chain of one cycle and returns the id under
// which the execution can be traced.
type Queue interface {
	Submit(ctx context.Context, ref CycleRef) (string, error)
}

// ChainRunner executes a whole chain in-process.
type ChainRunner interface {
	RunChain(ctx context.Context, ref CycleRef) error
}

// LocalQueue runs chains on a bounded pool of goroutines inside the API
// process. Accepted work is lost if the process exits; use the Temporal
// queue when that matters.
type LocalQueue struct {
	runner      ChainRunner
	log         *logger.Logger
	concurrency int

	mu      sync.RWMutex
	jobs    chan CycleRef
	running bool
	wg      sync.WaitGroup
}

func NewLocalQueue(runner ChainRunner, concurrency, backlog int, log *logger.Logger) *LocalQueue {
	if concurrency < 1 {
		concurrency = 1
	}
	if backlog < concurrency {
		backlog = concurrency
	}
	return &LocalQueue{
		runner:      runner,
		log:         log.With("component", "LocalCycleQueue"),
		concurrency: concurrency,
		jobs:        make(chan CycleRef, backlog),
	}
}

// Start launches the workers; they exit when ctx ends.
func (q *LocalQueue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.running = true
	q.log.Info("Starting cycle worker pool", "concurrency", q.concurrency)
	for i := 0; i < q.concurrency; i++ {
		q.wg.Add(1)
		go q.runLoop(ctx, i+1)
	}
	go func() {
		<-ctx.Done()
		q.mu.Lock()
		q.running = false
		q.mu.Unlock()
	}()
}

// Wait blocks until every worker has exited.
func (q *LocalQueue) Wait() { q.wg.Wait() }

func (q *LocalQueue) Submit(_ context.Context, ref CycleRef) (string, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.running {
		return "", ErrQueueStopped
	}
	select {
	case q.jobs <- ref:
		return LocalWorkflowID(ref), nil
	default:
		return "", ErrQueueFull
	}
}

func LocalWorkflowID(ref CycleRef) string {
	return fmt.Sprintf("local-cycle-%d-task-%d", ref.CycleID, ref.TaskID)
}

func (q *LocalQueue) runLoop(ctx context.Context, workerID int) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			q.log.Info("Cycle worker stopped", "worker_id", workerID)
			return
		case ref := <-q.jobs:
			q.runOne(ctx, workerID, ref)
		}
	}
}

func (q *LocalQueue) runOne(ctx context.Context, workerID int, ref CycleRef) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("Cycle chain panic",
				"worker_id", workerID,
				"task_id", ref.TaskID,
				"cycle_id", ref.CycleID,
				"panic", r,
			)
		}
	}()
	if err := q.runner.RunChain(ctx, ref); err != nil {
		q.log.Warn("Cycle chain failed", "worker_id", workerID, "task_id", ref.TaskID, "error", err)
		return
	}
	q.log.Info("Cycle chain finished", "worker_id", workerID, "task_id", ref.TaskID, "cycle_id", ref.CycleID)
}
