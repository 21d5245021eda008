package cyclerun

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	defaultStageTimeout = time.Hour
	failureTimeout      = time.Minute
)

// Workflow executes the stage activities in order. The first failure is
// handed to the failure activity exactly once and then returned.
func Workflow(ctx workflow.Context, in Input) error {
	timeout := time.Duration(in.StageTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultStageTimeout
	}
	noRetry := &temporal.RetryPolicy{MaximumAttempts: 1}
	stageCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		// The activity enforces the stage deadline itself; the extra minute
		// lets it persist the failure before Temporal gives up on it.
		StartToCloseTimeout: timeout + time.Minute,
		RetryPolicy:         noRetry,
	})
	log := workflow.GetLogger(ctx)

	for _, act := range stageActivities {
		err := workflow.ExecuteActivity(stageCtx, act.name, in.Ref).Get(stageCtx, nil)
		if err == nil {
			continue
		}
		log.Warn("cycle stage failed", "step", act.step, "task_id", in.Ref.TaskID, "error", err)

		failCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
			StartToCloseTimeout: failureTimeout,
			RetryPolicy:         noRetry,
		})
		fin := FailureInput{Ref: in.Ref, Step: act.step, Message: err.Error()}
		if ferr := workflow.ExecuteActivity(failCtx, ActivityOnChainFailure, fin).Get(failCtx, nil); ferr != nil {
			log.Error("chain failure handler", "task_id", in.Ref.TaskID, "error", ferr)
		}
		return err
	}
	return nil
}
