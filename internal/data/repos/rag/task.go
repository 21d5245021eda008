package rag

import (
	"gorm.io/gorm"

	"github.com/yungbote/ferag-backend/internal/data/repos/dberr"
	types "github.com/yungbote/ferag-backend/internal/domain"
	domrag "github.com/yungbote/ferag-backend/internal/domain/rag"
	"github.com/yungbote/ferag-backend/internal/pkg/dbctx"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
)

type TaskRepo interface {
	Create(dbc dbctx.Context, t *types.Task) error
	GetByID(dbc dbctx.Context, id uint) (*types.Task, error)
	// ListByRag pages tasks newest first and returns the total count.
	ListByRag(dbc dbctx.Context, ragID uint, offset, limit int) ([]*types.Task, int64, error)
	// UpdateStatusUnlessTerminal writes status and errMsg unless the task is
	// already done or failed. It reports whether a row changed.
	UpdateStatusUnlessTerminal(dbc dbctx.Context, id uint, status, errMsg string) (bool, error)
	SetWorkflowID(dbc dbctx.Context, id uint, workflowID string) error
	HasRunningForRag(dbc dbctx.Context, ragID uint) (bool, error)
}

type taskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepo(db *gorm.DB, baseLog *logger.Logger) TaskRepo {
	return &taskRepo{db: db, log: baseLog.With("repo", "TaskRepo")}
}

func (r *taskRepo) Create(dbc dbctx.Context, t *types.Task) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return dberr.Map(transaction.WithContext(dbc.Ctx).Create(t).Error)
}

func (r *taskRepo) GetByID(dbc dbctx.Context, id uint) (*types.Task, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var t types.Task
	if err := transaction.WithContext(dbc.Ctx).First(&t, id).Error; err != nil {
		return nil, dberr.Map(err)
	}
	return &t, nil
}

func (r *taskRepo) ListByRag(dbc dbctx.Context, ragID uint, offset, limit int) ([]*types.Task, int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var total int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Task{}).
		Where("rag_id = ?", ragID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.Task
	if err := transaction.WithContext(dbc.Ctx).
		Where("rag_id = ?", ragID).
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *taskRepo) UpdateStatusUnlessTerminal(dbc dbctx.Context, id uint, status, errMsg string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	updates := map[string]interface{}{"status": status}
	if errMsg != "" {
		updates["error"] = errMsg
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Task{}).
		Where("id = ? AND status NOT IN ?", id, domrag.TerminalTaskStatuses).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *taskRepo) SetWorkflowID(dbc dbctx.Context, id uint, workflowID string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Task{}).
		Where("id = ?", id).
		Update("workflow_id", workflowID).Error
}

func (r *taskRepo) HasRunningForRag(dbc dbctx.Context, ragID uint) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Task{}).
		Where("rag_id = ? AND status = ?", ragID, domrag.TaskStatusRunning).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
