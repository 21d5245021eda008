// Package pipeline drives one upload cycle through its four stages:
// extraction, schema induction, merge and staging.
//
// Stages run strictly in order. Each one publishes "running" on entry and,
// on failure, records the task as failed and publishes "failed" before
// returning the error. The chain runner then calls OnChainFailure exactly
// once and stops.
package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"

	perrors "github.com/yungbote/ferag-backend/internal/pkg/errors"
)

const (
	StageExtract = "graphrag"
	StageSchema  = "schema_induction"
	StageMerge   = "merge"
	StageStaging = "staging"
)

// Order lists the stages in execution order.
var Order = []string{StageExtract, StageSchema, StageMerge, StageStaging}

var (
	ErrStoreUnavailable      = perrors.ErrStoreUnavailable
	ErrExtractionFailed      = perrors.ErrExtractionFailed
	ErrInductionFailed       = perrors.ErrInductionFailed
	ErrMergeInputMissing     = perrors.ErrMergeInputMissing
	ErrPreconditionViolation = perrors.ErrPreconditionViolation
)

// Files the stages exchange through the cycle work dir.
const (
	ProdExportFile     = "prod_export.ttl"
	OntologyReportFile = "ontology_merge_report.txt"
	TriplesReportFile  = "triples_merge_report.txt"
	InputDir           = "input"
	InputFile          = "source.txt"
)

// CycleRef identifies the cycle a chain works on. InputFile is only read by
// the extraction stage.
type CycleRef struct {
	RagID     uint   `json:"rag_id"`
	CycleID   uint   `json:"cycle_id"`
	CycleN    uint   `json:"cycle_n"`
	TaskID    uint   `json:"task_id"`
	InputFile string `json:"input_file,omitempty"`
}

// WorkDir is the directory shared by every stage of one cycle.
func WorkDir(root string, ragID, cycleID uint) string {
	return filepath.Join(root, fmt.Sprintf("rag_%d", ragID), fmt.Sprintf("cycle_%d", cycleID))
}

// InputPath is where an upload is stored inside the cycle work dir.
func InputPath(root string, ragID, cycleID uint) string {
	return filepath.Join(WorkDir(root, ragID, cycleID), InputDir, InputFile)
}

// StageError is returned by a stage that already recorded its failure.
type StageError struct {
	Step string
	Err  error
}

func (e *StageError) Error() string { return e.Step + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// FailedStep returns the stage that produced err, or "".
func FailedStep(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Step
	}
	return ""
}
