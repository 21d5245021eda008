// Package extract runs the external graph indexer over an uploaded document
// and converts its tabular export into Turtle.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/yungbote/ferag-backend/internal/graph/rdf"
	perrors "github.com/yungbote/ferag-backend/internal/pkg/errors"
	"github.com/yungbote/ferag-backend/internal/pkg/httpx"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
)

// OutputFile is the Turtle produced by Run inside the work dir.
const OutputFile = "graphrag_output.ttl"

// Indexer builds the parquet tables under <root>/output.
type Indexer interface {
	Index(ctx context.Context, root string) error
}

// CommandIndexer shells out to `graphrag index`.
type CommandIndexer struct {
	Bin string
	Log *logger.Logger
}

func (c CommandIndexer) Index(ctx context.Context, root string) error {
	bin := c.Bin
	if bin == "" {
		bin = "graphrag"
	}
	cmd := exec.CommandContext(ctx, bin, "index", "--root", root, "--skip-validation")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if c.Log != nil {
		c.Log.Info("Indexer finished",
			"root", root,
			"duration_ms", time.Since(start).Milliseconds(),
			"ok", err == nil,
		)
	}
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: indexer: %v", perrors.ErrExtractionFailed, ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: indexer exited with code %d: %s", perrors.ErrExtractionFailed, exitErr.ExitCode(), httpx.Excerpt(stderr.Bytes(), 2048))
		}
		return fmt.Errorf("%w: indexer: %v", perrors.ErrExtractionFailed, err)
	}
	return nil
}

type RunnerConfig struct {
	// TemplateDir holds settings.yaml and an optional prompts/ directory.
	TemplateDir string
	LLMBaseURL  string
	LLMModel    string
	Timeout     time.Duration
}

type Runner struct {
	log     *logger.Logger
	cfg     RunnerConfig
	indexer Indexer
}

func NewRunner(cfg RunnerConfig, indexer Indexer, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{log: log.With("component", "Extract"), cfg: cfg, indexer: indexer}
}

// Result summarizes one extraction.
type Result struct {
	Entities      int
	Relationships int
	Statements    int
	OutputPath    string
}

// Run prepares workDir, indexes the document at inputFile and writes
// OutputFile. Any indexer failure or missing table wraps ErrExtractionFailed.
func (r *Runner) Run(ctx context.Context, workDir, inputFile string) (Result, error) {
	if err := r.prepare(workDir, inputFile); err != nil {
		return Result{}, err
	}

	ictx := ctx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ictx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}
	if err := r.indexer.Index(ictx, workDir); err != nil {
		if !errors.Is(err, perrors.ErrExtractionFailed) {
			err = fmt.Errorf("%w: %v", perrors.ErrExtractionFailed, err)
		}
		return Result{}, err
	}

	tables, err := ReadTables(OutputDir(workDir))
	if err != nil {
		if !errors.Is(err, perrors.ErrExtractionFailed) {
			err = fmt.Errorf("%w: %v", perrors.ErrExtractionFailed, err)
		}
		return Result{}, err
	}
	g := ToGraph(tables.Entities, tables.Relationships)
	out := filepath.Join(workDir, OutputFile)
	if err := os.WriteFile(out, []byte(rdf.WriteTurtle(g)), 0o644); err != nil {
		return Result{}, fmt.Errorf("write %s: %w", OutputFile, err)
	}
	res := Result{
		Entities:      len(tables.Entities),
		Relationships: len(tables.Relationships),
		Statements:    g.Len(),
		OutputPath:    out,
	}
	r.log.Info("Extraction written",
		"work_dir", workDir,
		"entities", res.Entities,
		"relationships", res.Relationships,
		"statements", res.Statements,
	)
	return res, nil
}

func (r *Runner) prepare(workDir, inputFile string) error {
	inputDir := filepath.Join(workDir, "input")
	if err := os.MkdirAll(inputDir, 0o755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	dest := filepath.Join(inputDir, "source.txt")
	if !samePath(inputFile, dest) {
		if err := copyFile(inputFile, dest); err != nil {
			return fmt.Errorf("%w: stage input: %v", perrors.ErrExtractionFailed, err)
		}
	}

	if r.cfg.TemplateDir == "" {
		return nil
	}
	tmpl, err := os.ReadFile(filepath.Join(r.cfg.TemplateDir, "settings.yaml"))
	if err != nil {
		return fmt.Errorf("%w: read settings template: %v", perrors.ErrExtractionFailed, err)
	}
	settings, err := RenderSettings(tmpl, r.cfg.LLMBaseURL, r.cfg.LLMModel)
	if err != nil {
		return fmt.Errorf("%w: %v", perrors.ErrExtractionFailed, err)
	}
	if err := os.WriteFile(filepath.Join(workDir, "settings.yaml"), settings, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	src := filepath.Join(r.cfg.TemplateDir, "prompts")
	dst := filepath.Join(workDir, "prompts")
	if exists(src) && !exists(dst) {
		if err := copyDir(src, dst); err != nil {
			return fmt.Errorf("copy prompts: %w", err)
		}
	}
	return nil
}

func samePath(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	return err1 == nil && err2 == nil && aa == bb
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}
