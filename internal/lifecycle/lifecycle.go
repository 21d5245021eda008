// Package lifecycle provisions, promotes and retires the triplestore
// datasets of a RAG instance.
//
// A RAG owns one prod dataset. Each cycle adds three ephemeral ones
// (triples-delta, ontology-delta, staging) that live from the staging stage
// until the cycle is approved or rejected.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/ferag-backend/internal/graph/fuseki"
	"github.com/yungbote/ferag-backend/internal/graph/naming"
	perrors "github.com/yungbote/ferag-backend/internal/pkg/errors"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
)

// Files the merge stage leaves in the cycle work dir.
const (
	TriplesFile  = "integrated_triples.ttl"
	OntologyFile = "integrated_ontology.ttl"
)

// Store is the subset of the triplestore client the manager needs.
type Store interface {
	CreateDataset(ctx context.Context, name string) error
	DeleteDataset(ctx context.Context, name string) error
	ListDatasets(ctx context.Context) ([]string, error)
	RunUpdate(ctx context.Context, name, stmt string) error
	ExportGraph(ctx context.Context, name string) (string, error)
	LoadGraph(ctx context.Context, name, ttl string, mode fuseki.LoadMode) error
	Select(ctx context.Context, name, query string) (*fuseki.SelectResult, error)
}

type Manager struct {
	store Store
	log   *logger.Logger
}

func New(store Store, log *logger.Logger) *Manager {
	return &Manager{store: store, log: log.With("component", "DatasetLifecycle")}
}

// CreateProd creates the prod dataset of ragID and returns its name.
func (m *Manager) CreateProd(ctx context.Context, ragID uint) (string, error) {
	name, err := naming.Prod(ragID)
	if err != nil {
		return "", err
	}
	if err := m.store.CreateDataset(ctx, name); err != nil {
		return "", err
	}
	return name, nil
}

// DropProd deletes a prod dataset. Failures are logged, never returned.
func (m *Manager) DropProd(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if err := m.store.DeleteDataset(ctx, name); err != nil {
		m.log.Warn("prod dataset delete failed", "dataset", name, "error", err)
	}
}

// ExportProd serializes the prod dataset of ragID; a missing or empty dataset
// yields fuseki.EmptyGraph.
func (m *Manager) ExportProd(ctx context.Context, ragID uint) (string, error) {
	name, err := naming.Prod(ragID)
	if err != nil {
		return "", err
	}
	return m.store.ExportGraph(ctx, name)
}

// StageCycle creates the three cycle datasets and loads the merged triples
// and ontology from workDir into their deltas, replacing any prior content.
func (m *Manager) StageCycle(ctx context.Context, ragID, cycleN uint, workDir string) (naming.Set, error) {
	set, err := naming.ForCycle(ragID, cycleN)
	if err != nil {
		return naming.Set{}, err
	}
	triples, err := readArtifact(filepath.Join(workDir, TriplesFile))
	if err != nil {
		return naming.Set{}, err
	}
	ontology, err := readArtifact(filepath.Join(workDir, OntologyFile))
	if err != nil {
		return naming.Set{}, err
	}

	for _, ds := range set.CycleScoped() {
		if err := m.store.CreateDataset(ctx, ds); err != nil {
			return naming.Set{}, err
		}
	}
	if err := m.store.LoadGraph(ctx, set.TriplesDelta, triples, fuseki.Replace); err != nil {
		return naming.Set{}, err
	}
	if err := m.store.LoadGraph(ctx, set.OntologyDelta, ontology, fuseki.Replace); err != nil {
		return naming.Set{}, err
	}
	m.log.Info("cycle staged", "rag_id", ragID, "cycle_n", cycleN, "triples", set.TriplesDelta, "ontology", set.OntologyDelta)
	return set, nil
}

// PromoteResult records which deltas were written to prod.
type PromoteResult struct {
	TriplesLoaded  bool
	OntologyLoaded bool
}

// Promote rebuilds prod from the cycle's deltas: prod is cleared, the
// triples delta replaces it when non-empty, then the ontology delta is
// appended when non-empty. The deltas are left untouched, so Promote can be
// repeated with the same result.
func (m *Manager) Promote(ctx context.Context, ragID, cycleN uint) (PromoteResult, error) {
	var res PromoteResult
	set, err := naming.ForCycle(ragID, cycleN)
	if err != nil {
		return res, err
	}

	if err := m.store.RunUpdate(ctx, set.Prod, fuseki.ClearAll); err != nil {
		return res, fmt.Errorf("clear prod: %w", err)
	}

	triples, err := m.store.ExportGraph(ctx, set.TriplesDelta)
	if err != nil {
		return res, fmt.Errorf("export triples delta: %w", err)
	}
	if !fuseki.IsEmptyGraph(triples) {
		if err := m.store.LoadGraph(ctx, set.Prod, triples, fuseki.Replace); err != nil {
			return res, fmt.Errorf("load triples into prod: %w", err)
		}
		res.TriplesLoaded = true
	}

	ontology, err := m.store.ExportGraph(ctx, set.OntologyDelta)
	if err != nil {
		return res, fmt.Errorf("export ontology delta: %w", err)
	}
	if !fuseki.IsEmptyGraph(ontology) {
		if err := m.store.LoadGraph(ctx, set.Prod, ontology, fuseki.Append); err != nil {
			return res, fmt.Errorf("load ontology into prod: %w", err)
		}
		res.OntologyLoaded = true
	}

	m.log.Info("cycle promoted", "rag_id", ragID, "cycle_n", cycleN, "prod", set.Prod,
		"triples_loaded", res.TriplesLoaded, "ontology_loaded", res.OntologyLoaded)
	return res, nil
}

// Retire deletes the three cycle datasets concurrently. Failures are logged
// and swallowed.
func (m *Manager) Retire(ctx context.Context, ragID, cycleN uint) {
	set, err := naming.ForCycle(ragID, cycleN)
	if err != nil {
		m.log.Warn("retire skipped", "rag_id", ragID, "cycle_n", cycleN, "error", err)
		return
	}

	var g errgroup.Group
	for _, ds := range set.CycleScoped() {
		ds := ds
		g.Go(func() error {
			if err := m.store.DeleteDataset(ctx, ds); err != nil {
				m.log.Warn("cycle dataset delete failed", "dataset", ds, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Verification summarizes the datasets of one RAG.
type Verification struct {
	Prod           string   `json:"prod"`
	ProdExists     bool     `json:"prod_exists"`
	ProdStatements int      `json:"prod_statements"`
	CycleDatasets  []string `json:"cycle_datasets"`
}

const countQuery = "SELECT (COUNT(*) AS ?n) WHERE { ?s ?p ?o }"

// Verify lists the datasets that belong to ragID and counts prod statements.
func (m *Manager) Verify(ctx context.Context, ragID uint) (Verification, error) {
	prod, err := naming.Prod(ragID)
	if err != nil {
		return Verification{}, err
	}
	out := Verification{Prod: prod, CycleDatasets: []string{}}

	names, err := m.store.ListDatasets(ctx)
	if err != nil {
		return out, err
	}
	for _, n := range names {
		parsed, err := naming.Parse(n)
		if err != nil || parsed.RagID != ragID {
			continue
		}
		if parsed.Kind == naming.KindProd {
			out.ProdExists = true
			continue
		}
		out.CycleDatasets = append(out.CycleDatasets, n)
	}
	if !out.ProdExists {
		return out, nil
	}

	res, err := m.store.Select(ctx, prod, countQuery)
	if err != nil {
		return out, err
	}
	if len(res.Results.Bindings) > 0 {
		out.ProdStatements, _ = strconv.Atoi(res.Results.Bindings[0].Value("n"))
	}
	return out, nil
}

func readArtifact(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", perrors.ErrMergeInputMissing, filepath.Base(path))
	}
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
