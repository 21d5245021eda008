package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/ferag-backend/internal/data/repos"
	types "github.com/yungbote/ferag-backend/internal/domain"
	domrag "github.com/yungbote/ferag-backend/internal/domain/rag"
	"github.com/yungbote/ferag-backend/internal/pkg/dbctx"
	"github.com/yungbote/ferag-backend/internal/platform/apierr"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
	"github.com/yungbote/ferag-backend/internal/realtime"
	"github.com/yungbote/ferag-backend/internal/realtime/bus"
)

const (
	DefaultTaskPageSize = 20
	MaxTaskPageSize     = 100
)

type TaskPage struct {
	Tasks []*types.Task `json:"tasks"`
	Total int64         `json:"total"`
	Skip  int           `json:"skip"`
	Limit int           `json:"limit"`
}

// TaskWatch is a live view of one task. First is set when the task was
// already terminal at subscription time; Events then carries nothing useful.
type TaskWatch struct {
	First  *realtime.StatusEvent
	Events <-chan realtime.StatusEvent
	Cancel func()
}

type TaskService interface {
	Get(ctx context.Context, userID, taskID uint) (*types.Task, error)
	ListByRag(ctx context.Context, userID, ragID uint, skip, limit int) (*TaskPage, error)
	Watch(ctx context.Context, userID, taskID uint) (*TaskWatch, error)
}

type taskService struct {
	log   *logger.Logger
	repos repos.Set
	bus   bus.Bus
}

func NewTaskService(log *logger.Logger, set repos.Set, b bus.Bus) TaskService {
	return &taskService{log: log.With("service", "TaskService"), repos: set, bus: b}
}

// Get returns the task when its RAG is visible to userID. A task of an
// invisible RAG is reported as missing.
func (s *taskService) Get(ctx context.Context, userID, taskID uint) (*types.Task, error) {
	dbc := dbctx.Context{Ctx: ctx}
	task, err := s.repos.Task.GetByID(dbc, taskID)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, apierr.NotFound("task_not_found", "task not found")
	}
	if err != nil {
		return nil, err
	}
	if _, err := s.repos.Rag.GetVisible(dbc, task.RagID, userID); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return nil, apierr.NotFound("task_not_found", "task not found")
		}
		return nil, err
	}
	return task, nil
}

func (s *taskService) ListByRag(ctx context.Context, userID, ragID uint, skip, limit int) (*TaskPage, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := visibleRag(dbc, s.repos.Rag, ragID, userID); err != nil {
		return nil, err
	}
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultTaskPageSize
	}
	if limit > MaxTaskPageSize {
		limit = MaxTaskPageSize
	}
	tasks, total, err := s.repos.Task.ListByRag(dbc, ragID, skip, limit)
	if err != nil {
		return nil, err
	}
	return &TaskPage{Tasks: tasks, Total: total, Skip: skip, Limit: limit}, nil
}

// Watch subscribes before reading the stored status, so an event published
// in between is either delivered or already reflected in First.
func (s *taskService) Watch(ctx context.Context, userID, taskID uint) (*TaskWatch, error) {
	if _, err := s.Get(ctx, userID, taskID); err != nil {
		return nil, err
	}
	ch, cancel, err := s.bus.Subscribe(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("subscribe task %d: %w", taskID, err)
	}
	task, err := s.repos.Task.GetByID(dbctx.Context{Ctx: ctx}, taskID)
	if err != nil {
		cancel()
		return nil, err
	}
	w := &TaskWatch{Events: ch, Cancel: cancel}
	switch task.Status {
	case domrag.TaskStatusDone:
		ev := realtime.Done(taskID)
		w.First = &ev
	case domrag.TaskStatusFailed:
		ev := realtime.Failed(taskID, "", errors.New(task.Error))
		w.First = &ev
	}
	return w, nil
}
