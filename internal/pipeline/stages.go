package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/ferag-backend/internal/data/repos"
	domrag "github.com/yungbote/ferag-backend/internal/domain/rag"
	"github.com/yungbote/ferag-backend/internal/graph/merge"
	"github.com/yungbote/ferag-backend/internal/graph/naming"
	"github.com/yungbote/ferag-backend/internal/lifecycle"
	"github.com/yungbote/ferag-backend/internal/observability"
	"github.com/yungbote/ferag-backend/internal/pipeline/extract"
	"github.com/yungbote/ferag-backend/internal/pipeline/schema"
	"github.com/yungbote/ferag-backend/internal/pkg/dbctx"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
	"github.com/yungbote/ferag-backend/internal/realtime"
	"github.com/yungbote/ferag-backend/internal/realtime/bus"
)

type Extractor interface {
	Run(ctx context.Context, workDir, inputFile string) (extract.Result, error)
}

type Inducer interface {
	Run(ctx context.Context, workDir string) (schema.Timing, error)
}

// Datasets is the triplestore side of the merge and staging stages.
type Datasets interface {
	ExportProd(ctx context.Context, ragID uint) (string, error)
	StageCycle(ctx context.Context, ragID, cycleN uint, workDir string) (naming.Set, error)
}

type Deps struct {
	// DB scopes the final task and cycle writes to one transaction.
	DB        *gorm.DB
	Tasks     repos.TaskRepo
	Cycles    repos.CycleRepo
	Bus       bus.Bus
	Extractor Extractor
	Inducer   Inducer
	Datasets  Datasets
	Metrics   *observability.Metrics
	Log       *logger.Logger

	WorkRoot     string
	StageTimeout time.Duration
}

// Stages holds the four stage functions. It keeps no per-cycle state, so one
// value serves any number of concurrent chains.
type Stages struct {
	db        *gorm.DB
	tasks     repos.TaskRepo
	cycles    repos.CycleRepo
	bus       bus.Bus
	extractor Extractor
	inducer   Inducer
	datasets  Datasets
	metrics   *observability.Metrics
	log       *logger.Logger
	root      string
	timeout   time.Duration
}

func NewStages(d Deps) *Stages {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Stages{
		db:        d.DB,
		tasks:     d.Tasks,
		cycles:    d.Cycles,
		bus:       d.Bus,
		extractor: d.Extractor,
		inducer:   d.Inducer,
		datasets:  d.Datasets,
		metrics:   d.Metrics,
		log:       log.With("component", "CyclePipeline"),
		root:      d.WorkRoot,
		timeout:   d.StageTimeout,
	}
}

// Extract runs the indexer over the uploaded document.
func (s *Stages) Extract(ctx context.Context, ref CycleRef) error {
	return s.runStage(ctx, ref, StageExtract, func(ctx context.Context, workDir string) error {
		input := ref.InputFile
		if input == "" {
			input = InputPath(s.root, ref.RagID, ref.CycleID)
		}
		_, err := s.extractor.Run(ctx, workDir, input)
		return err
	})
}

// InduceSchema asks the model for an ontology of the extracted tables.
func (s *Stages) InduceSchema(ctx context.Context, ref CycleRef) error {
	return s.runStage(ctx, ref, StageSchema, func(ctx context.Context, workDir string) error {
		_, err := s.inducer.Run(ctx, workDir)
		return err
	})
}

// cycleReport is persisted on the cycle for review.
type cycleReport struct {
	Ontology merge.OntologyReport `json:"ontology"`
	Triples  merge.TripleReport   `json:"triples"`
}

// Merge folds the cycle's ontology and triples into the current prod export.
func (s *Stages) Merge(ctx context.Context, ref CycleRef) error {
	return s.runStage(ctx, ref, StageMerge, func(ctx context.Context, workDir string) error {
		prod, err := s.datasets.ExportProd(ctx, ref.RagID)
		if err != nil {
			return fmt.Errorf("export prod: %w", err)
		}
		prodPath := filepath.Join(workDir, ProdExportFile)
		if err := os.WriteFile(prodPath, []byte(prod), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", ProdExportFile, err)
		}

		// prod is the older side (A); the cycle's output is B and wins
		// description conflicts.
		ontRep, err := merge.OntologiesFiles(
			prodPath,
			filepath.Join(workDir, schema.OutputFile),
			filepath.Join(workDir, lifecycle.OntologyFile),
			filepath.Join(workDir, OntologyReportFile),
		)
		if err != nil {
			return err
		}
		triRep, err := merge.TriplesFiles(
			prodPath,
			filepath.Join(workDir, extract.OutputFile),
			filepath.Join(workDir, lifecycle.TriplesFile),
			filepath.Join(workDir, TriplesReportFile),
		)
		if err != nil {
			return err
		}

		raw, err := json.Marshal(cycleReport{Ontology: ontRep, Triples: triRep})
		if err != nil {
			return err
		}
		if err := s.cycles.SetReport(dbctx.Context{Ctx: ctx}, ref.CycleID, datatypes.JSON(raw)); err != nil {
			return fmt.Errorf("save merge report: %w", err)
		}
		return nil
	})
}

// Stage loads the merged graphs into the cycle datasets and hands the cycle
// over for review. It is the only stage that completes the task; the task and
// cycle writes commit together or not at all.
func (s *Stages) Stage(ctx context.Context, ref CycleRef) error {
	return s.runStage(ctx, ref, StageStaging, func(ctx context.Context, workDir string) error {
		if _, err := s.datasets.StageCycle(ctx, ref.RagID, ref.CycleN, workDir); err != nil {
			return err
		}
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			txc := dbctx.Context{Ctx: ctx, Tx: tx}
			done, err := s.tasks.UpdateStatusUnlessTerminal(txc, ref.TaskID, domrag.TaskStatusDone, "")
			if err != nil {
				return err
			}
			if !done {
				return fmt.Errorf("%w: task %d is already terminal", ErrPreconditionViolation, ref.TaskID)
			}
			ok, err := s.cycles.TransitionStatus(txc, ref.CycleID, domrag.CycleStatusReview)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: cycle %d is not running", ErrPreconditionViolation, ref.CycleID)
			}
			return nil
		})
	})
}

type stageFunc func(ctx context.Context, ref CycleRef) error

func (s *Stages) chain() []stageFunc {
	return []stageFunc{s.Extract, s.InduceSchema, s.Merge, s.Stage}
}

// RunChain executes the stages in order, stops at the first failure and
// hands it to OnChainFailure once.
func (s *Stages) RunChain(ctx context.Context, ref CycleRef) error {
	for _, stage := range s.chain() {
		if err := stage(ctx, ref); err != nil {
			if ferr := s.OnChainFailure(context.WithoutCancel(ctx), &ref, err); ferr != nil {
				s.log.Warn("chain failure handler", "task_id", ref.TaskID, "error", ferr)
			}
			return err
		}
	}
	return nil
}

func (s *Stages) runStage(ctx context.Context, ref CycleRef, step string, body func(ctx context.Context, workDir string) error) (err error) {
	log := s.log.With("rag_id", ref.RagID, "cycle_id", ref.CycleID, "task_id", ref.TaskID, "step", step)
	final := step == StageStaging

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	ctx, span := observability.Tracer().Start(ctx, "pipeline."+step)
	span.SetAttributes(
		attribute.Int("ferag.rag_id", int(ref.RagID)),
		attribute.Int("ferag.cycle_id", int(ref.CycleID)),
		attribute.Int("ferag.task_id", int(ref.TaskID)),
	)
	defer span.End()

	start := time.Now()
	s.publish(ctx, ref.TaskID, realtime.Running(ref.TaskID, step))
	log.Info("stage started")

	defer func() {
		if r := recover(); r != nil {
			log.Error("stage panic", "panic", r)
			err = s.fail(ctx, ref, step, fmt.Errorf("panic: %v", r), start)
			span.SetStatus(codes.Error, "panic")
		}
	}()

	workDir := WorkDir(s.root, ref.RagID, ref.CycleID)
	if mkErr := os.MkdirAll(workDir, 0o755); mkErr != nil {
		return s.fail(ctx, ref, step, mkErr, start)
	}
	if runErr := body(ctx, workDir); runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		log.Error("stage failed", "error", runErr, "elapsed", time.Since(start))
		return s.fail(ctx, ref, step, runErr, start)
	}

	s.metrics.ObserveStage(step, "ok", time.Since(start))
	log.Info("stage finished", "elapsed", time.Since(start))
	if final {
		s.publish(ctx, ref.TaskID, realtime.Done(ref.TaskID))
	}
	return nil
}

// fail records the failure at the stage boundary and wraps it in a
// StageError. The write uses a context detached from the stage deadline.
func (s *Stages) fail(ctx context.Context, ref CycleRef, step string, cause error, start time.Time) error {
	s.metrics.ObserveStage(step, "error", time.Since(start))
	wctx := context.WithoutCancel(ctx)
	if _, err := s.tasks.UpdateStatusUnlessTerminal(dbctx.Context{Ctx: wctx}, ref.TaskID, domrag.TaskStatusFailed, cause.Error()); err != nil {
		s.log.Error("persist task failure", "task_id", ref.TaskID, "error", err)
	}
	s.publish(wctx, ref.TaskID, realtime.Failed(ref.TaskID, step, cause))
	return &StageError{Step: step, Err: cause}
}

// OnChainFailure is the single failure callback of a chain. It is a no-op
// without a task id. The task becomes failed unless already terminal, and a
// failed event is published only when this call made that change, so a stage
// that already reported its own failure is not announced twice. A running
// cycle moves to failed.
func (s *Stages) OnChainFailure(ctx context.Context, ref *CycleRef, cause error) error {
	if ref == nil || ref.TaskID == 0 {
		s.log.Warn("chain failure without task reference", "error", cause)
		return nil
	}
	s.metrics.IncChainFailure()
	if cause == nil {
		cause = errors.New("unknown error")
	}
	dbc := dbctx.Context{Ctx: ctx}

	var errs []error
	changed, err := s.tasks.UpdateStatusUnlessTerminal(dbc, ref.TaskID, domrag.TaskStatusFailed, cause.Error())
	if err != nil {
		errs = append(errs, fmt.Errorf("mark task failed: %w", err))
	}
	if changed {
		s.publish(ctx, ref.TaskID, realtime.Failed(ref.TaskID, FailedStep(cause), cause))
	}
	if ref.CycleID != 0 {
		if _, err := s.cycles.TransitionStatus(dbc, ref.CycleID, domrag.CycleStatusFailed); err != nil {
			errs = append(errs, fmt.Errorf("mark cycle failed: %w", err))
		}
	}
	s.log.Warn("cycle chain failed",
		"rag_id", ref.RagID,
		"cycle_id", ref.CycleID,
		"task_id", ref.TaskID,
		"step", FailedStep(cause),
		"error", cause,
	)
	return errors.Join(errs...)
}

func (s *Stages) publish(ctx context.Context, taskID uint, ev realtime.StatusEvent) {
	if s.bus == nil {
		return
	}
	s.metrics.IncStatusEvent(ev.Status)
	if err := s.bus.Publish(ctx, taskID, ev); err != nil {
		s.log.Warn("status publish failed", "task_id", taskID, "status", ev.Status, "error", err)
	}
}
