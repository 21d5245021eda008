package rag

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/ferag-backend/internal/data/repos/dberr"
	types "github.com/yungbote/ferag-backend/internal/domain"
	domrag "github.com/yungbote/ferag-backend/internal/domain/rag"
	"github.com/yungbote/ferag-backend/internal/pkg/dbctx"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
)

type CycleRepo interface {
	// CreateNext inserts a cycle numbered max(cycle_n)+1 for the RAG.
	CreateNext(dbc dbctx.Context, ragID uint, status string) (*types.UploadCycle, error)
	GetByID(dbc dbctx.Context, id uint) (*types.UploadCycle, error)
	// GetForRag returns the cycle only when it belongs to ragID.
	GetForRag(dbc dbctx.Context, ragID, id uint) (*types.UploadCycle, error)
	ListByRag(dbc dbctx.Context, ragID uint) ([]*types.UploadCycle, error)
	// TransitionStatus moves the cycle to `to` if its current status is an
	// allowed predecessor. It reports whether a row changed.
	TransitionStatus(dbc dbctx.Context, id uint, to string) (bool, error)
	// ClaimDecision reserves a cycle in review for one approve or reject
	// call. A claim taken before staleBefore counts as abandoned and can be
	// taken over.
	ClaimDecision(dbc dbctx.Context, id uint, token string, now, staleBefore time.Time) (bool, error)
	// FinishDecision moves a claimed cycle from review to `to` (merged or
	// archived). Only the holder of token succeeds.
	FinishDecision(dbc dbctx.Context, id uint, token, to string, at time.Time) (bool, error)
	ReleaseDecision(dbc dbctx.Context, id uint, token string) error
	SetReport(dbc dbctx.Context, id uint, report datatypes.JSON) error
}

type cycleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCycleRepo(db *gorm.DB, baseLog *logger.Logger) CycleRepo {
	return &cycleRepo{db: db, log: baseLog.With("repo", "CycleRepo")}
}

func (r *cycleRepo) CreateNext(dbc dbctx.Context, ragID uint, status string) (*types.UploadCycle, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out *types.UploadCycle
	err := transaction.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		var maxN int
		if err := tx.Model(&types.UploadCycle{}).
			Where("rag_id = ?", ragID).
			Select("COALESCE(MAX(cycle_n), 0)").
			Scan(&maxN).Error; err != nil {
			return err
		}
		c := &types.UploadCycle{RagID: ragID, CycleN: maxN + 1, Status: status}
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, dberr.Map(err)
	}
	return out, nil
}

func (r *cycleRepo) GetByID(dbc dbctx.Context, id uint) (*types.UploadCycle, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var c types.UploadCycle
	if err := transaction.WithContext(dbc.Ctx).First(&c, id).Error; err != nil {
		return nil, dberr.Map(err)
	}
	return &c, nil
}

func (r *cycleRepo) GetForRag(dbc dbctx.Context, ragID, id uint) (*types.UploadCycle, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var c types.UploadCycle
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND rag_id = ?", id, ragID).
		First(&c).Error; err != nil {
		return nil, dberr.Map(err)
	}
	return &c, nil
}

func (r *cycleRepo) ListByRag(dbc dbctx.Context, ragID uint) ([]*types.UploadCycle, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.UploadCycle
	if err := transaction.WithContext(dbc.Ctx).
		Where("rag_id = ?", ragID).
		Order("cycle_n DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *cycleRepo) TransitionStatus(dbc dbctx.Context, id uint, to string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	from := domrag.CyclePredecessors(to)
	if len(from) == 0 {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.UploadCycle{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *cycleRepo) ClaimDecision(dbc dbctx.Context, id uint, token string, now, staleBefore time.Time) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.UploadCycle{}).
		Where("id = ? AND status = ?", id, domrag.CycleStatusReview).
		Where("decision_token = '' OR decision_token IS NULL OR decision_at < ?", staleBefore).
		Updates(map[string]interface{}{
			"decision_token": token,
			"decision_at":    now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *cycleRepo) FinishDecision(dbc dbctx.Context, id uint, token, to string, at time.Time) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if token == "" || !domrag.CanTransitionCycle(domrag.CycleStatusReview, to) {
		return false, nil
	}
	updates := map[string]interface{}{
		"status":         to,
		"decision_token": "",
		"decision_at":    nil,
	}
	if to == domrag.CycleStatusMerged {
		updates["merged_at"] = at
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.UploadCycle{}).
		Where("id = ? AND status = ? AND decision_token = ?", id, domrag.CycleStatusReview, token).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *cycleRepo) ReleaseDecision(dbc dbctx.Context, id uint, token string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.UploadCycle{}).
		Where("id = ? AND decision_token = ?", id, token).
		Updates(map[string]interface{}{
			"decision_token": "",
			"decision_at":    nil,
		}).Error
}

func (r *cycleRepo) SetReport(dbc dbctx.Context, id uint, report datatypes.JSON) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.UploadCycle{}).
		Where("id = ?", id).
		Update("report", report).Error
}
