package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/yungbote/ferag-backend/internal/data/repos"
	types "github.com/yungbote/ferag-backend/internal/domain"
	"github.com/yungbote/ferag-backend/internal/pkg/dbctx"
	perrors "github.com/yungbote/ferag-backend/internal/pkg/errors"
	"github.com/yungbote/ferag-backend/internal/platform/apierr"
)

// visibleRag loads ragID when userID owns it or is a member. Anything else is
// reported as not found so existence does not leak.
func visibleRag(dbc dbctx.Context, rags repos.RagRepo, ragID, userID uint) (*types.RagInstance, error) {
	inst, err := rags.GetVisible(dbc, ragID, userID)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, apierr.NotFound("rag_not_found", "RAG not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load rag %d: %w", ragID, err)
	}
	return inst, nil
}

func requireOwner(inst *types.RagInstance, userID uint, action string) error {
	if inst.OwnerID != userID {
		return apierr.Forbidden("not_owner", "only the owner can "+action)
	}
	return nil
}

// storeFailure maps a triplestore error to 503 and anything else to 500.
func storeFailure(op string, err error) error {
	if errors.Is(err, perrors.ErrStoreUnavailable) {
		return apierr.New(http.StatusServiceUnavailable, "store_unavailable", fmt.Errorf("%s: %w", op, err))
	}
	return apierr.New(http.StatusInternalServerError, "internal", fmt.Errorf("%s: %w", op, err))
}
