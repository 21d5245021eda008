package user

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/ferag-backend/internal/data/repos/dberr"
	"github.com/yungbote/ferag-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ferag-backend/internal/domain"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := testutil.Ctx()
	repo := NewUserRepo(db, testutil.Logger(t))

	u := &types.User{Email: "  Alice@Example.com ", PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, u))
	assert.NotZero(t, u.ID)
	assert.Equal(t, "alice@example.com", u.Email)

	err := repo.Create(ctx, &types.User{Email: "alice@example.com", PasswordHash: "x"})
	assert.True(t, errors.Is(err, dberr.ErrConflict))

	got, err := repo.GetByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repo.GetByID(ctx, u.ID+100)
	assert.True(t, errors.Is(err, dberr.ErrNotFound))
}
