package rag

import (
	"gorm.io/gorm"

	"github.com/yungbote/ferag-backend/internal/data/repos/dberr"
	types "github.com/yungbote/ferag-backend/internal/domain"
	"github.com/yungbote/ferag-backend/internal/pkg/dbctx"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
)

type RagRepo interface {
	Create(dbc dbctx.Context, r *types.RagInstance) error
	SetDataset(dbc dbctx.Context, id uint, dataset string) error
	GetByID(dbc dbctx.Context, id uint) (*types.RagInstance, error)
	// GetVisible returns the instance when userID owns it or is a member.
	GetVisible(dbc dbctx.Context, id, userID uint) (*types.RagInstance, error)
	ListForUser(dbc dbctx.Context, userID uint) ([]*types.RagInstance, error)
	IncrementCycleCount(dbc dbctx.Context, id uint) error
	// Delete removes the instance with its members, tasks and cycles.
	Delete(dbc dbctx.Context, id uint) error
}

type ragRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRagRepo(db *gorm.DB, baseLog *logger.Logger) RagRepo {
	return &ragRepo{db: db, log: baseLog.With("repo", "RagRepo")}
}

func (r *ragRepo) Create(dbc dbctx.Context, inst *types.RagInstance) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return dberr.Map(transaction.WithContext(dbc.Ctx).Create(inst).Error)
}

func (r *ragRepo) SetDataset(dbc dbctx.Context, id uint, dataset string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.RagInstance{}).
		Where("id = ?", id).
		Update("fuseki_dataset", dataset)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return dberr.Map(gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *ragRepo) GetByID(dbc dbctx.Context, id uint) (*types.RagInstance, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var inst types.RagInstance
	if err := transaction.WithContext(dbc.Ctx).First(&inst, id).Error; err != nil {
		return nil, dberr.Map(err)
	}
	return &inst, nil
}

func (r *ragRepo) GetVisible(dbc dbctx.Context, id, userID uint) (*types.RagInstance, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var inst types.RagInstance
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Where("owner_id = ? OR id IN (?)", userID,
			transaction.Model(&types.RagMember{}).Select("rag_id").Where("user_id = ?", userID)).
		First(&inst).Error
	if err != nil {
		return nil, dberr.Map(err)
	}
	return &inst, nil
}

func (r *ragRepo) ListForUser(dbc dbctx.Context, userID uint) ([]*types.RagInstance, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.RagInstance
	err := transaction.WithContext(dbc.Ctx).
		Where("owner_id = ? OR id IN (?)", userID,
			transaction.Model(&types.RagMember{}).Select("rag_id").Where("user_id = ?", userID)).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ragRepo) IncrementCycleCount(dbc dbctx.Context, id uint) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.RagInstance{}).
		Where("id = ?", id).
		Update("cycle_count", gorm.Expr("cycle_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return dberr.Map(gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *ragRepo) Delete(dbc dbctx.Context, id uint) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("rag_id = ?", id).Delete(&types.RagMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("rag_id = ?", id).Delete(&types.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("rag_id = ?", id).Delete(&types.UploadCycle{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&types.RagInstance{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return dberr.Map(gorm.ErrRecordNotFound)
		}
		return nil
	})
}
