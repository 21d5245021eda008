package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/ferag-backend/internal/data/repos/dberr"
	"github.com/yungbote/ferag-backend/internal/data/repos/rag"
	"github.com/yungbote/ferag-backend/internal/data/repos/user"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
)

var (
	ErrNotFound = dberr.ErrNotFound
	ErrConflict = dberr.ErrConflict
)

type UserRepo = user.UserRepo
type RagRepo = rag.RagRepo
type MemberRepo = rag.MemberRepo
type CycleRepo = rag.CycleRepo
type TaskRepo = rag.TaskRepo

// Set bundles every repository over one database handle.
type Set struct {
	User   UserRepo
	Rag    RagRepo
	Member MemberRepo
	Cycle  CycleRepo
	Task   TaskRepo
}

func NewSet(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		User:   user.NewUserRepo(db, log),
		Rag:    rag.NewRagRepo(db, log),
		Member: rag.NewMemberRepo(db, log),
		Cycle:  rag.NewCycleRepo(db, log),
		Task:   rag.NewTaskRepo(db, log),
	}
}
