package user

import (
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/ferag-backend/internal/data/repos/dberr"
	types "github.com/yungbote/ferag-backend/internal/domain"
	"github.com/yungbote/ferag-backend/internal/pkg/dbctx"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
)

type UserRepo interface {
	Create(dbc dbctx.Context, u *types.User) error
	GetByID(dbc dbctx.Context, id uint) (*types.User, error)
	GetByEmail(dbc dbctx.Context, email string) (*types.User, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

// Create stores u with a normalized email. A duplicate email is ErrConflict.
func (r *userRepo) Create(dbc dbctx.Context, u *types.User) error {
	u.Email = normalizeEmail(u.Email)
	return dberr.Map(r.tx(dbc).Create(u).Error)
}

func (r *userRepo) GetByID(dbc dbctx.Context, id uint) (*types.User, error) {
	var u types.User
	if err := r.tx(dbc).First(&u, id).Error; err != nil {
		return nil, dberr.Map(err)
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(dbc dbctx.Context, email string) (*types.User, error) {
	var u types.User
	if err := r.tx(dbc).Where("email = ?", normalizeEmail(email)).First(&u).Error; err != nil {
		return nil, dberr.Map(err)
	}
	return &u, nil
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
