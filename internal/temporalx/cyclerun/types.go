// Package cyclerun runs the stage chain of one ingestion cycle as a Temporal
// workflow. Each stage is one activity and none of them is retried.
package cyclerun

import (
	"fmt"

	"github.com/yungbote/ferag-backend/internal/pipeline"
)

const (
	WorkflowName = "ferag_cycle"

	ActivityExtract        = "ferag_cycle_extract"
	ActivityInduceSchema   = "ferag_cycle_induce_schema"
	ActivityMerge          = "ferag_cycle_merge"
	ActivityStage          = "ferag_cycle_stage"
	ActivityOnChainFailure = "ferag_cycle_on_chain_failure"
)

// stageActivities is the fixed execution order, paired with the step name
// reported when an activity fails before it could record its own failure.
var stageActivities = []struct {
	name string
	step string
}{
	{ActivityExtract, pipeline.StageExtract},
	{ActivityInduceSchema, pipeline.StageSchema},
	{ActivityMerge, pipeline.StageMerge},
	{ActivityStage, pipeline.StageStaging},
}

// Input is the workflow argument. StageTimeoutSeconds travels with it so
// replays see the value the run started with.
type Input struct {
	Ref                 pipeline.CycleRef `json:"ref"`
	StageTimeoutSeconds int               `json:"stage_timeout_seconds"`
}

type FailureInput struct {
	Ref     pipeline.CycleRef `json:"ref"`
	Step    string            `json:"step"`
	Message string            `json:"message"`
}

// WorkflowID is unique per cycle so a cycle can never run twice.
func WorkflowID(ref pipeline.CycleRef) string {
	return fmt.Sprintf("ferag-cycle-%d", ref.CycleID)
}
