package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/ferag-backend/internal/data/repos"
	types "github.com/yungbote/ferag-backend/internal/domain"
	domrag "github.com/yungbote/ferag-backend/internal/domain/rag"
	"github.com/yungbote/ferag-backend/internal/lifecycle"
	"github.com/yungbote/ferag-backend/internal/observability"
	"github.com/yungbote/ferag-backend/internal/pipeline"
	"github.com/yungbote/ferag-backend/internal/pkg/dbctx"
	"github.com/yungbote/ferag-backend/internal/platform/apierr"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
)

// CycleDatasets promotes and retires the cycle-scoped datasets.
type CycleDatasets interface {
	Promote(ctx context.Context, ragID, cycleN uint) (lifecycle.PromoteResult, error)
	Retire(ctx context.Context, ragID, cycleN uint)
}

type UploadResult struct {
	CycleID    uint   `json:"cycle_id"`
	CycleN     int    `json:"cycle_n"`
	TaskID     uint   `json:"task_id"`
	WorkflowID string `json:"workflow_id"`
}

type CycleService interface {
	Upload(ctx context.Context, userID, ragID uint, content io.Reader) (*UploadResult, error)
	List(ctx context.Context, userID, ragID uint) ([]*types.UploadCycle, error)
	Approve(ctx context.Context, userID, ragID, cycleID uint) (*types.UploadCycle, error)
	Reject(ctx context.Context, userID, ragID, cycleID uint) (*types.UploadCycle, error)
}

type CycleServiceDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Repos    repos.Set
	Queue    pipeline.Queue
	Datasets CycleDatasets
	Metrics  *observability.Metrics
	WorkRoot string
}

type cycleService struct {
	db       *gorm.DB
	log      *logger.Logger
	repos    repos.Set
	queue    pipeline.Queue
	datasets CycleDatasets
	metrics  *observability.Metrics
	root     string
}

func NewCycleService(d CycleServiceDeps) CycleService {
	return &cycleService{
		db:       d.DB,
		log:      d.Log.With("service", "CycleService"),
		repos:    d.Repos,
		queue:    d.Queue,
		datasets: d.Datasets,
		metrics:  d.Metrics,
		root:     d.WorkRoot,
	}
}

// Upload opens a new cycle for the document in content and submits its
// chain. When submission fails the task and cycle are marked failed and the
// caller gets 503.
func (s *cycleService) Upload(ctx context.Context, userID, ragID uint, content io.Reader) (*UploadResult, error) {
	dbc := dbctx.Context{Ctx: ctx}
	inst, err := visibleRag(dbc, s.repos.Rag, ragID, userID)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(inst, userID, "upload"); err != nil {
		return nil, err
	}

	var (
		cycle *types.UploadCycle
		task  *types.Task
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: ctx, Tx: tx}
		c, err := s.repos.Cycle.CreateNext(txc, ragID, domrag.CycleStatusRunning)
		if err != nil {
			return err
		}
		cycleID := c.ID
		t := &types.Task{
			RagID:   ragID,
			CycleID: &cycleID,
			Type:    domrag.TaskTypeFullCycle,
			Status:  domrag.TaskStatusRunning,
		}
		if err := s.repos.Task.Create(txc, t); err != nil {
			return err
		}
		cycle, task = c, t
		return nil
	})
	if err != nil {
		if errors.Is(err, repos.ErrConflict) {
			return nil, apierr.Conflict("cycle_conflict", errors.New("another upload claimed the same cycle number, retry"))
		}
		return nil, fmt.Errorf("open cycle: %w", err)
	}
	log := s.log.With("rag_id", ragID, "cycle_id", cycle.ID, "cycle_n", cycle.CycleN, "task_id", task.ID)

	inputPath := pipeline.InputPath(s.root, ragID, cycle.ID)
	if err := writeInput(inputPath, content); err != nil {
		s.abort(ctx, cycle.ID, task.ID, err)
		return nil, fmt.Errorf("store upload: %w", err)
	}

	ref := pipeline.CycleRef{
		RagID:     ragID,
		CycleID:   cycle.ID,
		CycleN:    uint(cycle.CycleN),
		TaskID:    task.ID,
		InputFile: inputPath,
	}
	workflowID, err := s.queue.Submit(ctx, ref)
	if err != nil {
		s.abort(ctx, cycle.ID, task.ID, err)
		log.Error("pipeline submit failed", "error", err)
		return nil, apierr.New(http.StatusServiceUnavailable, "pipeline_unavailable", fmt.Errorf("failed to start pipeline: %w", err))
	}
	if err := s.repos.Task.SetWorkflowID(dbc, task.ID, workflowID); err != nil {
		log.Warn("record workflow id", "workflow_id", workflowID, "error", err)
	}
	log.Info("Cycle submitted", "workflow_id", workflowID)
	return &UploadResult{CycleID: cycle.ID, CycleN: cycle.CycleN, TaskID: task.ID, WorkflowID: workflowID}, nil
}

func writeInput(path string, content io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, content); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// abort marks a cycle that never reached the queue as failed.
func (s *cycleService) abort(ctx context.Context, cycleID, taskID uint, cause error) {
	dbc := dbctx.Context{Ctx: context.WithoutCancel(ctx)}
	if _, err := s.repos.Task.UpdateStatusUnlessTerminal(dbc, taskID, domrag.TaskStatusFailed, cause.Error()); err != nil {
		s.log.Error("mark task failed", "task_id", taskID, "error", err)
	}
	if _, err := s.repos.Cycle.TransitionStatus(dbc, cycleID, domrag.CycleStatusFailed); err != nil {
		s.log.Error("mark cycle failed", "cycle_id", cycleID, "error", err)
	}
}

func (s *cycleService) List(ctx context.Context, userID, ragID uint) ([]*types.UploadCycle, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := visibleRag(dbc, s.repos.Rag, ragID, userID); err != nil {
		return nil, err
	}
	return s.repos.Cycle.ListByRag(dbc, ragID)
}

// reviewable resolves the rag and cycle of an approve or reject call.
func (s *cycleService) reviewable(dbc dbctx.Context, userID, ragID, cycleID uint, action string) (*types.UploadCycle, error) {
	inst, err := visibleRag(dbc, s.repos.Rag, ragID, userID)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(inst, userID, action); err != nil {
		return nil, err
	}
	cycle, err := s.repos.Cycle.GetForRag(dbc, ragID, cycleID)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, apierr.NotFound("cycle_not_found", "cycle not found")
	}
	if err != nil {
		return nil, err
	}
	if cycle.Status != domrag.CycleStatusReview {
		return nil, notInReview(cycle.Status)
	}
	return cycle, nil
}

// decisionClaimTTL bounds how long an approve or reject call may hold a
// cycle. A claim older than this is treated as left behind by a crash.
const decisionClaimTTL = 30 * time.Minute

var (
	errReviewRaced        = apierr.Conflict("cycle_not_in_review", errors.New("cycle left review while the decision was processed"))
	errDecisionInProgress = apierr.Conflict("decision_in_progress", errors.New("another approve or reject call is working on this cycle"))
)

func notInReview(status string) error {
	return apierr.Conflict("cycle_not_in_review", fmt.Errorf("cycle status must be %q, got %q", domrag.CycleStatusReview, status))
}

// claim reserves the cycle for the calling decision and returns its token.
func (s *cycleService) claim(dbc dbctx.Context, cycleID uint) (string, error) {
	token := uuid.NewString()
	now := time.Now().UTC()
	ok, err := s.repos.Cycle.ClaimDecision(dbc, cycleID, token, now, now.Add(-decisionClaimTTL))
	if err != nil {
		return "", err
	}
	if ok {
		return token, nil
	}
	current, err := s.repos.Cycle.GetByID(dbc, cycleID)
	if err != nil {
		return "", err
	}
	if current.Status != domrag.CycleStatusReview {
		return "", notInReview(current.Status)
	}
	return "", errDecisionInProgress
}

func (s *cycleService) release(ctx context.Context, cycleID uint, token string) {
	dbc := dbctx.Context{Ctx: context.WithoutCancel(ctx)}
	if err := s.repos.Cycle.ReleaseDecision(dbc, cycleID, token); err != nil {
		s.log.Warn("release decision claim", "cycle_id", cycleID, "error", err)
	}
}

// Approve claims the cycle, promotes its deltas into prod, then marks it
// merged and bumps cycle_count in one transaction, then retires the deltas.
// Concurrent decisions on the same cycle get 409 while the claim is held.
// The deltas survive a failed promote or commit so approval can be repeated.
func (s *cycleService) Approve(ctx context.Context, userID, ragID, cycleID uint) (out *types.UploadCycle, err error) {
	defer func() { s.metrics.IncDecision("approve", err) }()
	dbc := dbctx.Context{Ctx: ctx}
	cycle, err := s.reviewable(dbc, userID, ragID, cycleID, "approve")
	if err != nil {
		return nil, err
	}
	cycleN := uint(cycle.CycleN)

	token, err := s.claim(dbc, cycleID)
	if err != nil {
		return nil, err
	}

	if _, err := s.datasets.Promote(ctx, ragID, cycleN); err != nil {
		s.release(ctx, cycleID, token)
		return nil, storeFailure("promote cycle", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: ctx, Tx: tx}
		ok, err := s.repos.Cycle.FinishDecision(txc, cycleID, token, domrag.CycleStatusMerged, time.Now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return errReviewRaced
		}
		return s.repos.Rag.IncrementCycleCount(txc, ragID)
	})
	if err != nil {
		s.release(ctx, cycleID, token)
		if _, ok := apierr.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("commit approval: %w", err)
	}

	s.datasets.Retire(ctx, ragID, cycleN)
	s.log.Info("Cycle approved", "rag_id", ragID, "cycle_id", cycleID, "cycle_n", cycleN)
	return s.repos.Cycle.GetByID(dbc, cycleID)
}

// Reject archives a cycle under review and retires its datasets. Prod is not
// touched.
func (s *cycleService) Reject(ctx context.Context, userID, ragID, cycleID uint) (out *types.UploadCycle, err error) {
	defer func() { s.metrics.IncDecision("reject", err) }()
	dbc := dbctx.Context{Ctx: ctx}
	cycle, err := s.reviewable(dbc, userID, ragID, cycleID, "reject")
	if err != nil {
		return nil, err
	}
	token, err := s.claim(dbc, cycleID)
	if err != nil {
		return nil, err
	}
	ok, err := s.repos.Cycle.FinishDecision(dbc, cycleID, token, domrag.CycleStatusArchived, time.Now().UTC())
	if err != nil {
		s.release(ctx, cycleID, token)
		return nil, err
	}
	if !ok {
		return nil, errReviewRaced
	}
	s.datasets.Retire(ctx, ragID, uint(cycle.CycleN))
	s.log.Info("Cycle rejected", "rag_id", ragID, "cycle_id", cycleID, "cycle_n", cycle.CycleN)
	return s.repos.Cycle.GetByID(dbc, cycleID)
}
