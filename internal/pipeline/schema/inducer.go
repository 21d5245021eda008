// Package schema asks the language model for an OWL ontology describing the
// entities and relationships the indexer found.
package schema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yungbote/ferag-backend/internal/graph/rdf"
	"github.com/yungbote/ferag-backend/internal/pipeline/extract"
	perrors "github.com/yungbote/ferag-backend/internal/pkg/errors"
	"github.com/yungbote/ferag-backend/internal/platform/llm"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
)

const (
	OutputFile = "extracted_ontology.ttl"
	TimingFile = "schema_induction_timing.json"

	maxResponseTokens = 8192
)

// Timing records the cost of one induction call.
type Timing struct {
	WallClockSeconds float64 `json:"wall_clock_seconds"`
	Entities         int     `json:"entities_count"`
	Triplets         int     `json:"triplets_count"`
	Communities      int     `json:"communities_count"`
	PromptChars      int     `json:"prompt_chars"`
	OutputChars      int     `json:"output_chars"`
	Statements       int     `json:"statements"`
}

type Inducer struct {
	log *logger.Logger
	llm llm.Completer
}

func NewInducer(c llm.Completer, log *logger.Logger) *Inducer {
	if log == nil {
		log = logger.Nop()
	}
	return &Inducer{log: log.With("component", "SchemaInduction"), llm: c}
}

// Run reads the indexer tables under workDir/output, asks the model for an
// ontology and writes it to workDir/OutputFile once it parses as Turtle.
func (in *Inducer) Run(ctx context.Context, workDir string) (Timing, error) {
	out := extract.OutputDir(workDir)
	if err := extract.Require(out,
		extract.EntitiesFile,
		extract.RelationshipsFile,
		extract.CommunitiesFile,
		extract.CommunityReportsFile,
	); err != nil {
		return Timing{}, fmt.Errorf("%w: %v", perrors.ErrInductionFailed, err)
	}
	tables, err := extract.ReadTables(out)
	if err != nil {
		return Timing{}, fmt.Errorf("%w: %v", perrors.ErrInductionFailed, err)
	}

	prompt := BuildPrompt(tables)
	start := time.Now()
	raw, err := in.llm.Complete(ctx, prompt, llm.CompletionOptions{MaxTokens: maxResponseTokens, Temperature: 0})
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, llm.ErrEmptyCompletion) {
			return Timing{}, fmt.Errorf("%w: empty model response", perrors.ErrInductionFailed)
		}
		return Timing{}, fmt.Errorf("%w: %v", perrors.ErrInductionFailed, err)
	}
	ttl := ExtractTurtle(raw)
	if ttl == "" {
		return Timing{}, fmt.Errorf("%w: empty model response", perrors.ErrInductionFailed)
	}
	g, err := rdf.ParseTurtle(ttl)
	if err != nil {
		return Timing{}, fmt.Errorf("%w: model output is not turtle: %v", perrors.ErrInductionFailed, err)
	}

	if err := os.WriteFile(filepath.Join(workDir, OutputFile), []byte(ttl), 0o644); err != nil {
		return Timing{}, fmt.Errorf("write %s: %w", OutputFile, err)
	}

	timing := Timing{
		WallClockSeconds: float64(elapsed.Milliseconds()) / 1000,
		Entities:         len(tables.Entities),
		Triplets:         len(tables.Relationships),
		Communities:      len(tables.Reports),
		PromptChars:      len(prompt),
		OutputChars:      len(ttl),
		Statements:       g.Len(),
	}
	if b, err := json.MarshalIndent(timing, "", "  "); err == nil {
		if err := os.WriteFile(filepath.Join(workDir, TimingFile), b, 0o644); err != nil {
			in.log.Warn("Failed to write timing file", "error", err)
		}
	}
	in.log.Info("Ontology induced",
		"work_dir", workDir,
		"statements", g.Len(),
		"prompt_chars", timing.PromptChars,
		"duration_ms", elapsed.Milliseconds(),
	)
	return timing, nil
}
