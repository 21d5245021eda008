package cyclerun

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/ferag-backend/internal/pipeline"
)

// StageRunner is the in-process side of every activity.
type StageRunner interface {
	Extract(ctx context.Context, ref pipeline.CycleRef) error
	InduceSchema(ctx context.Context, ref pipeline.CycleRef) error
	Merge(ctx context.Context, ref pipeline.CycleRef) error
	Stage(ctx context.Context, ref pipeline.CycleRef) error
	OnChainFailure(ctx context.Context, ref *pipeline.CycleRef, cause error) error
}

type Activities struct {
	Stages StageRunner
}

func (a *Activities) Extract(ctx context.Context, ref pipeline.CycleRef) error {
	if err := a.check(); err != nil {
		return err
	}
	return a.Stages.Extract(ctx, ref)
}

func (a *Activities) InduceSchema(ctx context.Context, ref pipeline.CycleRef) error {
	if err := a.check(); err != nil {
		return err
	}
	return a.Stages.InduceSchema(ctx, ref)
}

func (a *Activities) Merge(ctx context.Context, ref pipeline.CycleRef) error {
	if err := a.check(); err != nil {
		return err
	}
	return a.Stages.Merge(ctx, ref)
}

func (a *Activities) Stage(ctx context.Context, ref pipeline.CycleRef) error {
	if err := a.check(); err != nil {
		return err
	}
	return a.Stages.Stage(ctx, ref)
}

// OnChainFailure rebuilds the cause from the serialized error so the failed
// event still carries the step that broke.
func (a *Activities) OnChainFailure(ctx context.Context, in FailureInput) error {
	if err := a.check(); err != nil {
		return err
	}
	ref := in.Ref
	cause := &pipeline.StageError{Step: in.Step, Err: errors.New(in.Message)}
	return a.Stages.OnChainFailure(ctx, &ref, cause)
}

func (a *Activities) check() error {
	if a == nil || a.Stages == nil {
		return fmt.Errorf("cyclerun: activities not configured")
	}
	return nil
}
