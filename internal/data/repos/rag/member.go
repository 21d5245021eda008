package rag

import (
	"gorm.io/gorm"

	"github.com/yungbote/ferag-backend/internal/data/repos/dberr"
	types "github.com/yungbote/ferag-backend/internal/domain"
	"github.com/yungbote/ferag-backend/internal/pkg/dbctx"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
)

type MemberRepo interface {
	Add(dbc dbctx.Context, m *types.RagMember) error
	Get(dbc dbctx.Context, ragID, userID uint) (*types.RagMember, error)
	ListByRag(dbc dbctx.Context, ragID uint) ([]*types.RagMember, error)
}

type memberRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMemberRepo(db *gorm.DB, baseLog *logger.Logger) MemberRepo {
	return &memberRepo{db: db, log: baseLog.With("repo", "MemberRepo")}
}

func (r *memberRepo) Add(dbc dbctx.Context, m *types.RagMember) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return dberr.Map(transaction.WithContext(dbc.Ctx).Create(m).Error)
}

func (r *memberRepo) Get(dbc dbctx.Context, ragID, userID uint) (*types.RagMember, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var m types.RagMember
	err := transaction.WithContext(dbc.Ctx).
		Where("rag_id = ? AND user_id = ?", ragID, userID).
		First(&m).Error
	if err != nil {
		return nil, dberr.Map(err)
	}
	return &m, nil
}

func (r *memberRepo) ListByRag(dbc dbctx.Context, ragID uint) ([]*types.RagMember, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.RagMember
	if err := transaction.WithContext(dbc.Ctx).
		Where("rag_id = ?", ragID).
		Order("user_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
