package cyclerun

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	enumspb "go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
	"go.temporal.io/sdk/testsuite"

	"github.com/yungbote/ferag-backend/internal/pipeline"
)

type fakeStages struct {
	mu       sync.Mutex
	calls    []string
	failAt   string
	failures []error
	refs     []pipeline.CycleRef
}

func (f *fakeStages) run(step string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, step)
	if step == f.failAt {
		return errors.New(step + " exploded")
	}
	return nil
}

func (f *fakeStages) Extract(_ context.Context, _ pipeline.CycleRef) error {
	return f.run(pipeline.StageExtract)
}

func (f *fakeStages) InduceSchema(_ context.Context, _ pipeline.CycleRef) error {
	return f.run(pipeline.StageSchema)
}

func (f *fakeStages) Merge(_ context.Context, _ pipeline.CycleRef) error {
	return f.run(pipeline.StageMerge)
}

func (f *fakeStages) Stage(_ context.Context, _ pipeline.CycleRef) error {
	return f.run(pipeline.StageStaging)
}

func (f *fakeStages) OnChainFailure(_ context.Context, ref *pipeline.CycleRef, cause error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, cause)
	f.refs = append(f.refs, *ref)
	return nil
}

var testRef = pipeline.CycleRef{RagID: 1, CycleID: 7, CycleN: 2, TaskID: 11}

func runWorkflow(t *testing.T, stages *fakeStages) error {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	Register(env, &Activities{Stages: stages})

	env.ExecuteWorkflow(WorkflowName, Input{Ref: testRef, StageTimeoutSeconds: 60})
	require.True(t, env.IsWorkflowCompleted())
	return env.GetWorkflowError()
}

func TestWorkflowRunsStagesInOrder(t *testing.T) {
	stages := &fakeStages{}
	require.NoError(t, runWorkflow(t, stages))

	assert.Equal(t, pipeline.Order, stages.calls)
	assert.Empty(t, stages.failures)
}

func TestWorkflowStopsAtFirstFailure(t *testing.T) {
	stages := &fakeStages{failAt: pipeline.StageSchema}
	err := runWorkflow(t, stages)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema_induction exploded")

	assert.Equal(t, []string{pipeline.StageExtract, pipeline.StageSchema}, stages.calls)
	require.Len(t, stages.failures, 1)
	assert.Equal(t, pipeline.StageSchema, pipeline.FailedStep(stages.failures[0]))
	assert.Equal(t, testRef, stages.refs[0])
}

func TestActivitiesRequireStages(t *testing.T) {
	var a *Activities
	assert.Error(t, a.Extract(context.Background(), testRef))
	assert.Error(t, (&Activities{}).OnChainFailure(context.Background(), FailureInput{}))
}

func TestQueueSubmitStartsWorkflow(t *testing.T) {
	tc := &mocks.Client{}
	run := &mocks.WorkflowRun{}
	run.On("GetID").Return("ferag-cycle-7")

	matchOpts := mock.MatchedBy(func(o temporalsdkclient.StartWorkflowOptions) bool {
		return o.ID == "ferag-cycle-7" &&
			o.TaskQueue == "ferag-cycles" &&
			o.WorkflowIDReusePolicy == enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE
	})
	matchIn := mock.MatchedBy(func(in Input) bool {
		return in.Ref == testRef && in.StageTimeoutSeconds == 90
	})
	tc.On("ExecuteWorkflow", mock.Anything, matchOpts, WorkflowName, matchIn).Return(run, nil)

	q, err := NewQueue(tc, "ferag-cycles", 90*time.Second)
	require.NoError(t, err)
	id, err := q.Submit(context.Background(), testRef)
	require.NoError(t, err)
	assert.Equal(t, "ferag-cycle-7", id)
	tc.AssertExpectations(t)
}

func TestQueueSubmitWrapsStartError(t *testing.T) {
	tc := &mocks.Client{}
	tc.On("ExecuteWorkflow", mock.Anything, mock.Anything, WorkflowName, mock.Anything).
		Return(nil, errors.New("frontend down"))

	q, err := NewQueue(tc, "ferag-cycles", time.Minute)
	require.NoError(t, err)
	_, err = q.Submit(context.Background(), testRef)
	assert.ErrorContains(t, err, "frontend down")
}

func TestNewQueueValidates(t *testing.T) {
	_, err := NewQueue(nil, "q", time.Minute)
	assert.Error(t, err)
	_, err = NewQueue(&mocks.Client{}, "", time.Minute)
	assert.Error(t, err)
}
