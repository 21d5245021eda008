package domain

import (
	"github.com/yungbote/ferag-backend/internal/domain/rag"
	"github.com/yungbote/ferag-backend/internal/domain/user"
)

type (
	User        = user.User
	RagInstance = rag.Instance
	RagMember   = rag.Member
	UploadCycle = rag.UploadCycle
	Task        = rag.Task
)

// Models lists every persisted type in migration order.
func Models() []interface{} {
	return []interface{}{
		&User{},
		&RagInstance{},
		&RagMember{},
		&UploadCycle{},
		&Task{},
	}
}
