package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/ferag-backend/internal/data/repos"
	types "github.com/yungbote/ferag-backend/internal/domain"
	domrag "github.com/yungbote/ferag-backend/internal/domain/rag"
	"github.com/yungbote/ferag-backend/internal/graph/naming"
	"github.com/yungbote/ferag-backend/internal/pkg/dbctx"
	"github.com/yungbote/ferag-backend/internal/platform/apierr"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
)

// ProdDatasets creates and drops the production dataset of a RAG and
// retires the delta datasets of cycles left in review.
type ProdDatasets interface {
	CreateProd(ctx context.Context, ragID uint) (string, error)
	DropProd(ctx context.Context, name string)
	Retire(ctx context.Context, ragID, cycleN uint)
}

type MemberView struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type RagService interface {
	Create(ctx context.Context, userID uint, name, description string) (*types.RagInstance, error)
	List(ctx context.Context, userID uint) ([]*types.RagInstance, error)
	Get(ctx context.Context, userID, ragID uint) (*types.RagInstance, error)
	Delete(ctx context.Context, userID, ragID uint) error
	AddMember(ctx context.Context, userID, ragID uint, email, role string) (*MemberView, error)
	ListMembers(ctx context.Context, userID, ragID uint) ([]MemberView, error)
}

type ragService struct {
	db       *gorm.DB
	log      *logger.Logger
	repos    repos.Set
	datasets ProdDatasets
}

func NewRagService(db *gorm.DB, log *logger.Logger, set repos.Set, datasets ProdDatasets) RagService {
	return &ragService{
		db:       db,
		log:      log.With("service", "RagService"),
		repos:    set,
		datasets: datasets,
	}
}

// Create persists the instance, records its prod dataset name and creates the
// dataset. When the store refuses, the row is removed again and the store
// error is returned.
func (s *ragService) Create(ctx context.Context, userID uint, name, description string) (*types.RagInstance, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apierr.BadRequest("invalid_name", errors.New("name is required"))
	}
	inst := &types.RagInstance{OwnerID: userID, Name: name, Description: strings.TrimSpace(description)}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.repos.Rag.Create(dbc, inst); err != nil {
			return err
		}
		dataset, err := naming.Prod(inst.ID)
		if err != nil {
			return err
		}
		inst.FusekiDataset = dataset
		return s.repos.Rag.SetDataset(dbc, inst.ID, dataset)
	})
	if err != nil {
		if errors.Is(err, naming.ErrOutOfRange) {
			return nil, apierr.Conflict("rag_id_exhausted", err)
		}
		return nil, fmt.Errorf("create rag: %w", err)
	}

	if _, err := s.datasets.CreateProd(ctx, inst.ID); err != nil {
		if derr := s.repos.Rag.Delete(dbctx.Context{Ctx: context.WithoutCancel(ctx)}, inst.ID); derr != nil {
			s.log.Error("rollback rag after dataset failure", "rag_id", inst.ID, "error", derr)
		}
		return nil, storeFailure("create prod dataset", err)
	}
	s.log.Info("RAG created", "rag_id", inst.ID, "owner_id", userID, "dataset", inst.FusekiDataset)
	return inst, nil
}

func (s *ragService) List(ctx context.Context, userID uint) ([]*types.RagInstance, error) {
	return s.repos.Rag.ListForUser(dbctx.Context{Ctx: ctx}, userID)
}

func (s *ragService) Get(ctx context.Context, userID, ragID uint) (*types.RagInstance, error) {
	return visibleRag(dbctx.Context{Ctx: ctx}, s.repos.Rag, ragID, userID)
}

// Delete removes the RAG rows in one transaction and then drops the prod
// dataset best effort. Delta datasets of cycles awaiting review are retired
// first, since nothing references them once the rows are gone. A running
// task blocks deletion.
func (s *ragService) Delete(ctx context.Context, userID, ragID uint) error {
	dbc := dbctx.Context{Ctx: ctx}
	inst, err := visibleRag(dbc, s.repos.Rag, ragID, userID)
	if err != nil {
		return err
	}
	if err := requireOwner(inst, userID, "delete"); err != nil {
		return err
	}
	running, err := s.repos.Task.HasRunningForRag(dbc, ragID)
	if err != nil {
		return err
	}
	if running {
		return apierr.Conflict("tasks_running", errors.New("cannot delete: there are running tasks"))
	}
	cycles, err := s.repos.Cycle.ListByRag(dbc, ragID)
	if err != nil {
		return err
	}
	for _, c := range cycles {
		if c.Status == domrag.CycleStatusReview {
			s.datasets.Retire(ctx, ragID, uint(c.CycleN))
		}
	}
	if err := s.repos.Rag.Delete(dbc, ragID); err != nil {
		return fmt.Errorf("delete rag %d: %w", ragID, err)
	}
	s.datasets.DropProd(ctx, inst.FusekiDataset)
	s.log.Info("RAG deleted", "rag_id", ragID, "dataset", inst.FusekiDataset)
	return nil
}

func (s *ragService) AddMember(ctx context.Context, userID, ragID uint, email, role string) (*MemberView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	inst, err := visibleRag(dbc, s.repos.Rag, ragID, userID)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(inst, userID, "add members"); err != nil {
		return nil, err
	}
	if role == "" {
		role = domrag.RoleViewer
	}
	if role != domrag.RoleViewer && role != domrag.RoleEditor {
		return nil, apierr.BadRequest("invalid_role", fmt.Errorf("role must be %q or %q", domrag.RoleViewer, domrag.RoleEditor))
	}
	user, err := s.repos.User.GetByEmail(dbc, email)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, apierr.NotFound("user_not_found", "user not found")
	}
	if err != nil {
		return nil, err
	}
	if user.ID == inst.OwnerID {
		return nil, apierr.Conflict("already_owner", errors.New("user already owns this RAG"))
	}
	if err := s.repos.Member.Add(dbc, &types.RagMember{RagID: ragID, UserID: user.ID, Role: role}); err != nil {
		if errors.Is(err, repos.ErrConflict) {
			return nil, apierr.Conflict("already_member", errors.New("user is already a member"))
		}
		return nil, err
	}
	return &MemberView{UserID: user.ID, Email: user.Email, Role: role}, nil
}

func (s *ragService) ListMembers(ctx context.Context, userID, ragID uint) ([]MemberView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := visibleRag(dbc, s.repos.Rag, ragID, userID); err != nil {
		return nil, err
	}
	members, err := s.repos.Member.ListByRag(dbc, ragID)
	if err != nil {
		return nil, err
	}
	out := make([]MemberView, 0, len(members))
	for _, m := range members {
		view := MemberView{UserID: m.UserID, Role: m.Role}
		if u, err := s.repos.User.GetByID(dbc, m.UserID); err == nil {
			view.Email = u.Email
		}
		out = append(out, view)
	}
	return out, nil
}
