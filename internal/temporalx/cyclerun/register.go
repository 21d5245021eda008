package cyclerun

import (
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/workflow"
)

// Registry is the subset of worker.Worker used for registration.
type Registry interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// Register binds the workflow and its activities under their fixed names.
func Register(r Registry, acts *Activities) {
	r.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	r.RegisterActivityWithOptions(acts.Extract, activity.RegisterOptions{Name: ActivityExtract})
	r.RegisterActivityWithOptions(acts.InduceSchema, activity.RegisterOptions{Name: ActivityInduceSchema})
	r.RegisterActivityWithOptions(acts.Merge, activity.RegisterOptions{Name: ActivityMerge})
	r.RegisterActivityWithOptions(acts.Stage, activity.RegisterOptions{Name: ActivityStage})
	r.RegisterActivityWithOptions(acts.OnChainFailure, activity.RegisterOptions{Name: ActivityOnChainFailure})
}
