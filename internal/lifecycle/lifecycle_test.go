package lifecycle

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/ferag-backend/internal/graph/fuseki"
	"github.com/yungbote/ferag-backend/internal/graph/fuseki/fusekitest"
	"github.com/yungbote/ferag-backend/internal/graph/rdf"
	perrors "github.com/yungbote/ferag-backend/internal/pkg/errors"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
)

const triplesTTL = `@prefix ferag: <http://example.org/ferag#> .
ferag:Alice_Smith a ferag:Person ; ferag:description "VP of AI" .
[] a ferag:Relationship ; ferag:from ferag:Alice_Smith ; ferag:to ferag:TechCorp ; ferag:description "manages" .
`

const ontologyTTL = `@prefix : <http://example.org/ferag/schema#> .
@prefix owl: <http://www.w3.org/2002/07/owl#> .
:Person a owl:Class .
:manages a owl:ObjectProperty ; <http://www.w3.org/2000/01/rdf-schema#domain> :Person .
`

func newManager(t *testing.T) (*Manager, *fusekitest.Server) {
	t.Helper()
	srv := fusekitest.New()
	t.Cleanup(srv.Close)
	c, err := fuseki.New(fuseki.Config{BaseURL: srv.URL}, logger.Nop())
	require.NoError(t, err)
	return New(c, logger.Nop()), srv
}

func writeArtifacts(t *testing.T, triples, ontology string) string {
	t.Helper()
	dir := t.TempDir()
	if triples != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, TriplesFile), []byte(triples), 0o644))
	}
	if ontology != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, OntologyFile), []byte(ontology), 0o644))
	}
	return dir
}

func parse(t *testing.T, ttl string) *rdf.Graph {
	t.Helper()
	g, err := rdf.ParseTurtle(ttl)
	require.NoError(t, err)
	return g
}

func TestStageCycleLoadsDeltas(t *testing.T) {
	m, srv := newManager(t)
	ctx := context.Background()

	set, err := m.StageCycle(ctx, 1, 2, writeArtifacts(t, triplesTTL, ontologyTTL))
	require.NoError(t, err)
	assert.Equal(t, "ferag-00001-new-00002-triples", set.TriplesDelta)

	for _, ds := range set.CycleScoped() {
		assert.True(t, srv.Has(ds), ds)
	}
	assert.True(t, srv.Graph(set.TriplesDelta).Canonical().Equal(parse(t, triplesTTL).Canonical()))
	assert.True(t, srv.Graph(set.OntologyDelta).Canonical().Equal(parse(t, ontologyTTL).Canonical()))
	assert.Equal(t, 0, srv.Graph(set.Staging).Len())

	// Re-staging replaces rather than appends.
	_, err = m.StageCycle(ctx, 1, 2, writeArtifacts(t, triplesTTL, ontologyTTL))
	require.NoError(t, err)
	assert.Equal(t, parse(t, triplesTTL).Len(), srv.Graph(set.TriplesDelta).Len())
}

func TestStageCycleMissingInput(t *testing.T) {
	m, srv := newManager(t)
	_, err := m.StageCycle(context.Background(), 1, 1, writeArtifacts(t, triplesTTL, ""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, perrors.ErrMergeInputMissing))
	assert.Empty(t, srv.Datasets())
}

func TestPromoteRebuildsProd(t *testing.T) {
	m, srv := newManager(t)
	ctx := context.Background()
	require.NoError(t, srv.Seed("ferag-00001", `@prefix ferag: <http://example.org/ferag#> . ferag:Stale a ferag:Thing .`))
	_, err := m.StageCycle(ctx, 1, 1, writeArtifacts(t, triplesTTL, ontologyTTL))
	require.NoError(t, err)

	res, err := m.Promote(ctx, 1, 1)
	require.NoError(t, err)
	assert.True(t, res.TriplesLoaded)
	assert.True(t, res.OntologyLoaded)

	want := parse(t, triplesTTL)
	for _, st := range parse(t, ontologyTTL).Statements() {
		want.Add(st)
	}
	assert.True(t, srv.Graph("ferag-00001").Canonical().Equal(want.Canonical()))

	// Promoting again from the same deltas gives the same prod.
	_, err = m.Promote(ctx, 1, 1)
	require.NoError(t, err)
	assert.True(t, srv.Graph("ferag-00001").Canonical().Equal(want.Canonical()))
}

func TestPromoteWithEmptyTriplesDelta(t *testing.T) {
	m, srv := newManager(t)
	ctx := context.Background()
	require.NoError(t, srv.Seed("ferag-00003", triplesTTL))
	require.NoError(t, srv.Seed("ferag-00003-new-00001-triples", ""))
	require.NoError(t, srv.Seed("ferag-00003-new-00001-ontology", ontologyTTL))

	res, err := m.Promote(ctx, 3, 1)
	require.NoError(t, err)
	assert.False(t, res.TriplesLoaded)
	assert.True(t, res.OntologyLoaded)
	assert.True(t, srv.Graph("ferag-00003").Canonical().Equal(parse(t, ontologyTTL).Canonical()))

	loads := 0
	for _, c := range srv.Calls() {
		if c == "load ferag-00003" {
			loads++
		}
	}
	assert.Equal(t, 1, loads, "only the ontology delta is written to prod")
}

func TestPromoteSurfacesStoreErrors(t *testing.T) {
	m, srv := newManager(t)
	require.NoError(t, srv.Seed("ferag-00001", ""))
	srv.FailOn("update", http.StatusServiceUnavailable)
	_, err := m.Promote(context.Background(), 1, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, perrors.ErrStoreUnavailable))
}

func TestRetireSwallowsFailures(t *testing.T) {
	m, srv := newManager(t)
	ctx := context.Background()
	_, err := m.StageCycle(ctx, 4, 9, writeArtifacts(t, triplesTTL, ontologyTTL))
	require.NoError(t, err)
	require.NoError(t, srv.Seed("ferag-00004", ""))

	m.Retire(ctx, 4, 9)
	assert.Equal(t, []string{"ferag-00004"}, srv.Datasets())

	// Already gone and failing deletes are both fine.
	m.Retire(ctx, 4, 9)
	srv.FailOn("delete", http.StatusInternalServerError)
	m.Retire(ctx, 4, 9)
}

func TestCreateAndDropProd(t *testing.T) {
	m, srv := newManager(t)
	ctx := context.Background()
	name, err := m.CreateProd(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, "ferag-00012", name)
	assert.True(t, srv.Has(name))

	export, err := m.ExportProd(ctx, 12)
	require.NoError(t, err)
	assert.True(t, fuseki.IsEmptyGraph(export))

	m.DropProd(ctx, name)
	assert.False(t, srv.Has(name))
	m.DropProd(ctx, name)
}

func TestVerify(t *testing.T) {
	m, srv := newManager(t)
	require.NoError(t, srv.Seed("ferag-00002", triplesTTL))
	require.NoError(t, srv.Seed("ferag-00002-new-00001", ""))
	require.NoError(t, srv.Seed("ferag-00003", ""))
	require.NoError(t, srv.Seed("scratch", ""))
	srv.Select = func(_, _ string, g *rdf.Graph) fuseki.SelectResult {
		var res fuseki.SelectResult
		res.Head.Vars = []string{"n"}
		res.Results.Bindings = []fuseki.Binding{{"n": {Type: "literal", Value: strconv.Itoa(g.Len())}}}
		return res
	}

	v, err := m.Verify(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, v.ProdExists)
	assert.Equal(t, parse(t, triplesTTL).Len(), v.ProdStatements)
	assert.Equal(t, []string{"ferag-00002-new-00001"}, v.CycleDatasets)
}
