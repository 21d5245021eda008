package cyclerun

import (
	"context"
	"fmt"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/ferag-backend/internal/pipeline"
)

// Queue submits cycle chains to Temporal. It satisfies pipeline.Queue.
type Queue struct {
	tc           temporalsdkclient.Client
	taskQueue    string
	stageTimeout time.Duration
}

func NewQueue(tc temporalsdkclient.Client, taskQueue string, stageTimeout time.Duration) (*Queue, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if taskQueue == "" {
		return nil, fmt.Errorf("temporal task queue is empty")
	}
	return &Queue{tc: tc, taskQueue: taskQueue, stageTimeout: stageTimeout}, nil
}

var _ pipeline.Queue = (*Queue)(nil)

func (q *Queue) Submit(ctx context.Context, ref pipeline.CycleRef) (string, error) {
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:                    WorkflowID(ref),
		TaskQueue:             q.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}
	in := Input{Ref: ref, StageTimeoutSeconds: int(q.stageTimeout / time.Second)}
	run, err := q.tc.ExecuteWorkflow(ctx, opts, WorkflowName, in)
	if err != nil {
		return "", fmt.Errorf("start cycle workflow: %w", err)
	}
	return run.GetID(), nil
}
