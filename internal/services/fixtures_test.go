package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/ferag-backend/internal/data/repos"
	"github.com/yungbote/ferag-backend/internal/data/repos/testutil"
	"github.com/yungbote/ferag-backend/internal/graph/fuseki"
	"github.com/yungbote/ferag-backend/internal/lifecycle"
	"github.com/yungbote/ferag-backend/internal/pipeline"
	perrors "github.com/yungbote/ferag-backend/internal/pkg/errors"
	"github.com/yungbote/ferag-backend/internal/platform/apierr"
)

type fixture struct {
	db    *gorm.DB
	repos repos.Set
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := testutil.DB(t)
	return &fixture{db: gdb, repos: repos.NewSet(gdb, testutil.Logger(t))}
}

type fakeQueue struct {
	mu   sync.Mutex
	refs []pipeline.CycleRef
	err  error
}

func (q *fakeQueue) Submit(_ context.Context, ref pipeline.CycleRef) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	q.refs = append(q.refs, ref)
	return fmt.Sprintf("wf-%d", len(q.refs)), nil
}

type fakeDatasets struct {
	mu         sync.Mutex
	created    []uint
	dropped    []string
	promoted   []uint
	retired    []uint
	createErr  error
	promoteErr error

	// promoteStarted is signalled and promoteGate awaited inside Promote.
	promoteStarted chan struct{}
	promoteGate    chan struct{}
}

func (d *fakeDatasets) CreateProd(_ context.Context, ragID uint) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.createErr != nil {
		return "", d.createErr
	}
	d.created = append(d.created, ragID)
	return "ferag", nil
}

func (d *fakeDatasets) DropProd(_ context.Context, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dropped = append(d.dropped, name)
}

func (d *fakeDatasets) Promote(_ context.Context, _ uint, cycleN uint) (lifecycle.PromoteResult, error) {
	if d.promoteStarted != nil {
		d.promoteStarted <- struct{}{}
	}
	if d.promoteGate != nil {
		<-d.promoteGate
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.promoteErr != nil {
		return lifecycle.PromoteResult{}, d.promoteErr
	}
	d.promoted = append(d.promoted, cycleN)
	return lifecycle.PromoteResult{TriplesLoaded: true, OntologyLoaded: true}, nil
}

func (d *fakeDatasets) Retire(_ context.Context, _ uint, cycleN uint) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.retired = append(d.retired, cycleN)
}

var errStoreDown = &fuseki.StoreError{Op: "create", Status: 500}

func requireAPIError(t *testing.T, err error, status int, code string) {
	t.Helper()
	ae, ok := apierr.As(err)
	require.True(t, ok, "expected api error, got %v", err)
	assert.Equal(t, status, ae.Status, "status of %v", ae.Err)
	assert.Equal(t, code, ae.Code)
}

func TestStoreFailureMapping(t *testing.T) {
	requireAPIError(t, storeFailure("op", errStoreDown), 503, "store_unavailable")
	requireAPIError(t, storeFailure("op", errors.New("boom")), 500, "internal")
	assert.ErrorIs(t, errStoreDown, perrors.ErrStoreUnavailable)
}
