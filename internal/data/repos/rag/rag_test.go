package rag

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/yungbote/ferag-backend/internal/data/repos/dberr"
	"github.com/yungbote/ferag-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ferag-backend/internal/domain"
	domrag "github.com/yungbote/ferag-backend/internal/domain/rag"
)

func TestRagVisibility(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := testutil.Ctx()
	rags := NewRagRepo(db, log)
	members := NewMemberRepo(db, log)

	owner := testutil.SeedUser(t, db, "owner@example.com")
	viewer := testutil.SeedUser(t, db, "viewer@example.com")
	stranger := testutil.SeedUser(t, db, "stranger@example.com")

	inst := &types.RagInstance{OwnerID: owner.ID, Name: "kb"}
	require.NoError(t, rags.Create(ctx, inst))
	require.NoError(t, rags.SetDataset(ctx, inst.ID, "ferag-00001"))
	require.NoError(t, members.Add(ctx, &types.RagMember{RagID: inst.ID, UserID: viewer.ID, Role: domrag.RoleViewer}))

	err := members.Add(ctx, &types.RagMember{RagID: inst.ID, UserID: viewer.ID, Role: domrag.RoleEditor})
	assert.True(t, errors.Is(err, dberr.ErrConflict))

	got, err := rags.GetVisible(ctx, inst.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "ferag-00001", got.FusekiDataset)

	_, err = rags.GetVisible(ctx, inst.ID, viewer.ID)
	require.NoError(t, err)

	_, err = rags.GetVisible(ctx, inst.ID, stranger.ID)
	assert.True(t, errors.Is(err, dberr.ErrNotFound))

	list, err := rags.ListForUser(ctx, viewer.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	list, err = rags.ListForUser(ctx, stranger.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCycleNumbersAreDense(t *testing.T) {
	db := testutil.DB(t)
	ctx := testutil.Ctx()
	cycles := NewCycleRepo(db, testutil.Logger(t))
	owner := testutil.SeedUser(t, db, "o@example.com")
	a := testutil.SeedRag(t, db, owner.ID, "a")
	b := testutil.SeedRag(t, db, owner.ID, "b")

	c1, err := cycles.CreateNext(ctx, a.ID, domrag.CycleStatusRunning)
	require.NoError(t, err)
	assert.Equal(t, 1, c1.CycleN)

	// A failed cycle keeps its number.
	ok, err := cycles.TransitionStatus(ctx, c1.ID, domrag.CycleStatusFailed)
	require.NoError(t, err)
	assert.True(t, ok)

	c2, err := cycles.CreateNext(ctx, a.ID, domrag.CycleStatusRunning)
	require.NoError(t, err)
	assert.Equal(t, 2, c2.CycleN)

	other, err := cycles.CreateNext(ctx, b.ID, domrag.CycleStatusRunning)
	require.NoError(t, err)
	assert.Equal(t, 1, other.CycleN)

	err = db.Create(&types.UploadCycle{RagID: a.ID, CycleN: 2, Status: domrag.CycleStatusPending}).Error
	assert.True(t, dberr.IsUniqueViolation(err))

	list, err := cycles.ListByRag(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 2, list[0].CycleN)
}

func TestCycleTransitionsAreGuarded(t *testing.T) {
	db := testutil.DB(t)
	ctx := testutil.Ctx()
	cycles := NewCycleRepo(db, testutil.Logger(t))
	owner := testutil.SeedUser(t, db, "o@example.com")
	r := testutil.SeedRag(t, db, owner.ID, "a")

	c, err := cycles.CreateNext(ctx, r.ID, domrag.CycleStatusRunning)
	require.NoError(t, err)

	ok, err := cycles.ClaimDecision(ctx, c.ID, "t1", time.Now(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, ok, "running cycle cannot be claimed")

	ok, err = cycles.TransitionStatus(ctx, c.ID, domrag.CycleStatusReview)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, cycles.SetReport(ctx, c.ID, datatypes.JSON(`{"triples":{"output":3}}`)))

	ok, err = cycles.ClaimDecision(ctx, c.ID, "t1", time.Now(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = cycles.FinishDecision(ctx, c.ID, "t1", domrag.CycleStatusMerged, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	for _, next := range []string{domrag.CycleStatusArchived, domrag.CycleStatusFailed, domrag.CycleStatusReview} {
		ok, err = cycles.TransitionStatus(ctx, c.ID, next)
		require.NoError(t, err)
		assert.False(t, ok, "merged -> %s", next)
	}

	got, err := cycles.GetForRag(ctx, r.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domrag.CycleStatusMerged, got.Status)
	require.NotNil(t, got.MergedAt)
	assert.JSONEq(t, `{"triples":{"output":3}}`, string(got.Report))

	_, err = cycles.GetForRag(ctx, r.ID+1, c.ID)
	assert.True(t, errors.Is(err, dberr.ErrNotFound))
}

func TestDecisionClaimIsExclusive(t *testing.T) {
	db := testutil.DB(t)
	ctx := testutil.Ctx()
	cycles := NewCycleRepo(db, testutil.Logger(t))
	owner := testutil.SeedUser(t, db, "o@example.com")
	r := testutil.SeedRag(t, db, owner.ID, "a")
	c, err := cycles.CreateNext(ctx, r.ID, domrag.CycleStatusReview)
	require.NoError(t, err)

	now := time.Now().UTC()
	ok, err := cycles.ClaimDecision(ctx, c.ID, "first", now, now.Add(-time.Hour))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = cycles.ClaimDecision(ctx, c.ID, "second", now, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, ok, "live claim must not be shared")

	ok, err = cycles.FinishDecision(ctx, c.ID, "second", domrag.CycleStatusMerged, now)
	require.NoError(t, err)
	assert.False(t, ok, "only the claim holder may finish")

	require.NoError(t, cycles.ReleaseDecision(ctx, c.ID, "first"))
	ok, err = cycles.ClaimDecision(ctx, c.ID, "second", now, now.Add(-time.Hour))
	require.NoError(t, err)
	require.True(t, ok, "released claim can be taken")

	ok, err = cycles.FinishDecision(ctx, c.ID, "second", domrag.CycleStatusArchived, now)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := cycles.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domrag.CycleStatusArchived, got.Status)
	assert.Nil(t, got.MergedAt)
	assert.Empty(t, got.DecisionToken)
}

func TestStaleDecisionClaimCanBeTakenOver(t *testing.T) {
	db := testutil.DB(t)
	ctx := testutil.Ctx()
	cycles := NewCycleRepo(db, testutil.Logger(t))
	owner := testutil.SeedUser(t, db, "o@example.com")
	r := testutil.SeedRag(t, db, owner.ID, "a")
	c, err := cycles.CreateNext(ctx, r.ID, domrag.CycleStatusReview)
	require.NoError(t, err)

	taken := time.Now().UTC().Add(-2 * time.Hour)
	ok, err := cycles.ClaimDecision(ctx, c.ID, "crashed", taken, taken.Add(-time.Hour))
	require.NoError(t, err)
	require.True(t, ok)

	now := time.Now().UTC()
	ok, err = cycles.ClaimDecision(ctx, c.ID, "retry", now, now.Add(-time.Hour))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = cycles.FinishDecision(ctx, c.ID, "crashed", domrag.CycleStatusMerged, now)
	require.NoError(t, err)
	assert.False(t, ok, "superseded claim cannot commit")
	ok, err = cycles.FinishDecision(ctx, c.ID, "retry", domrag.CycleStatusMerged, now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTaskStatusIsMonotonic(t *testing.T) {
	db := testutil.DB(t)
	ctx := testutil.Ctx()
	tasks := NewTaskRepo(db, testutil.Logger(t))
	owner := testutil.SeedUser(t, db, "o@example.com")
	r := testutil.SeedRag(t, db, owner.ID, "a")

	task := &types.Task{RagID: r.ID, Type: domrag.TaskTypeFullCycle, Status: domrag.TaskStatusRunning}
	require.NoError(t, tasks.Create(ctx, task))

	running, err := tasks.HasRunningForRag(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, running)

	ok, err := tasks.UpdateStatusUnlessTerminal(ctx, task.ID, domrag.TaskStatusFailed, "graphrag: boom")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tasks.UpdateStatusUnlessTerminal(ctx, task.ID, domrag.TaskStatusDone, "")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domrag.TaskStatusFailed, got.Status)
	assert.Equal(t, "graphrag: boom", got.Error)

	running, err = tasks.HasRunningForRag(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, running)
}

func TestTaskPaging(t *testing.T) {
	db := testutil.DB(t)
	ctx := testutil.Ctx()
	tasks := NewTaskRepo(db, testutil.Logger(t))
	owner := testutil.SeedUser(t, db, "o@example.com")
	r := testutil.SeedRag(t, db, owner.ID, "a")

	for i := 0; i < 5; i++ {
		require.NoError(t, tasks.Create(ctx, &types.Task{RagID: r.ID, Type: domrag.TaskTypeFullCycle, Status: domrag.TaskStatusDone}))
	}
	page, total, err := tasks.ListByRag(ctx, r.ID, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, page, 2)
	assert.Greater(t, page[0].ID, page[1].ID)

	require.NoError(t, tasks.SetWorkflowID(ctx, page[0].ID, "cycle-1"))
	got, err := tasks.GetByID(ctx, page[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "cycle-1", got.WorkflowID)
}

func TestRagDeleteCascades(t *testing.T) {
	db := testutil.DB(t)
	ctx := testutil.Ctx()
	log := testutil.Logger(t)
	rags := NewRagRepo(db, log)
	cycles := NewCycleRepo(db, log)
	tasks := NewTaskRepo(db, log)
	owner := testutil.SeedUser(t, db, "o@example.com")
	r := testutil.SeedRag(t, db, owner.ID, "a")

	c, err := cycles.CreateNext(ctx, r.ID, domrag.CycleStatusRunning)
	require.NoError(t, err)
	require.NoError(t, tasks.Create(ctx, &types.Task{RagID: r.ID, CycleID: &c.ID, Type: domrag.TaskTypeFullCycle, Status: domrag.TaskStatusDone}))
	require.NoError(t, rags.IncrementCycleCount(ctx, r.ID))

	require.NoError(t, rags.Delete(ctx, r.ID))
	_, err = rags.GetByID(ctx, r.ID)
	assert.True(t, errors.Is(err, dberr.ErrNotFound))
	_, err = cycles.GetByID(ctx, c.ID)
	assert.True(t, errors.Is(err, dberr.ErrNotFound))
	assert.True(t, errors.Is(rags.Delete(ctx, r.ID), dberr.ErrNotFound))
}
