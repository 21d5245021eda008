package fuseki_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/ferag-backend/internal/graph/fuseki"
	"github.com/yungbote/ferag-backend/internal/graph/fuseki/fusekitest"
	"github.com/yungbote/ferag-backend/internal/graph/rdf"
	perrors "github.com/yungbote/ferag-backend/internal/pkg/errors"
	"github.com/yungbote/ferag-backend/internal/pkg/httpx"
)

const alice = `@prefix ferag: <http://example.org/ferag#> .
ferag:Alice a ferag:Person ; ferag:description "Engineer" .
`

const bob = `@prefix ferag: <http://example.org/ferag#> .
ferag:Bob a ferag:Person .
`

func newClient(t *testing.T) (*fuseki.Client, *fusekitest.Server) {
	t.Helper()
	srv := fusekitest.New()
	t.Cleanup(srv.Close)
	c, err := fuseki.New(fuseki.Config{BaseURL: srv.URL + "/", User: "admin", Password: "pw"}, nil)
	require.NoError(t, err)
	return c, srv
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := fuseki.New(fuseki.Config{BaseURL: "  "}, nil)
	assert.Error(t, err)
}

func TestCreateAndDeleteAreIdempotent(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()

	require.NoError(t, c.CreateDataset(ctx, "ferag-00001"))
	require.NoError(t, c.CreateDataset(ctx, "ferag-00001"))
	assert.True(t, srv.Has("ferag-00001"))

	names, err := c.ListDatasets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ferag-00001"}, names)

	require.NoError(t, c.DeleteDataset(ctx, "ferag-00001"))
	require.NoError(t, c.DeleteDataset(ctx, "ferag-00001"))
	assert.False(t, srv.Has("ferag-00001"))
}

func TestExportMissingDatasetIsEmpty(t *testing.T) {
	c, _ := newClient(t)
	out, err := c.ExportGraph(context.Background(), "ferag-00042")
	require.NoError(t, err)
	assert.Equal(t, fuseki.EmptyGraph, out)
	assert.True(t, fuseki.IsEmptyGraph(out))
}

func TestExportEmptyDatasetIsEmpty(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()
	require.NoError(t, c.CreateDataset(ctx, "ferag-00002"))
	out, err := c.ExportGraph(ctx, "ferag-00002")
	require.NoError(t, err)
	assert.Equal(t, fuseki.EmptyGraph, out)
}

func TestLoadReplaceThenAppend(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()
	require.NoError(t, c.CreateDataset(ctx, "ds"))

	require.NoError(t, c.LoadGraph(ctx, "ds", alice, fuseki.Replace))
	require.NoError(t, c.LoadGraph(ctx, "ds", alice, fuseki.Replace))
	assert.Equal(t, 2, srv.Graph("ds").Len())

	require.NoError(t, c.LoadGraph(ctx, "ds", bob, fuseki.Append))
	assert.Equal(t, 3, srv.Graph("ds").Len())

	out, err := c.ExportGraph(ctx, "ds")
	require.NoError(t, err)
	g, err := rdf.ParseTurtle(out)
	require.NoError(t, err)
	assert.Equal(t, 3, g.Len())
}

func TestRunUpdateClears(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()
	require.NoError(t, srv.Seed("ds", alice))

	require.NoError(t, c.RunUpdate(ctx, "ds", fuseki.ClearAll))
	assert.Equal(t, 0, srv.Graph("ds").Len())
	assert.True(t, srv.Has("ds"))
}

func TestFailuresAreStoreErrors(t *testing.T) {
	c, srv := newClient(t)
	srv.FailOn("load", http.StatusInternalServerError)
	require.NoError(t, srv.Seed("ds", ""))

	err := c.LoadGraph(context.Background(), "ds", alice, fuseki.Replace)
	require.Error(t, err)
	assert.True(t, errors.Is(err, perrors.ErrStoreUnavailable))

	var se *fuseki.StoreError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "load_replace", se.Op)
	assert.Equal(t, "ds", se.Dataset)
	assert.Equal(t, http.StatusInternalServerError, se.Status)
	assert.True(t, httpx.IsRetryableError(err))
}

func TestTransportFailureIsStoreError(t *testing.T) {
	srv := fusekitest.New()
	c, err := fuseki.New(fuseki.Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)
	srv.Close()

	err = c.CreateDataset(context.Background(), "ds")
	require.Error(t, err)
	assert.True(t, errors.Is(err, perrors.ErrStoreUnavailable))
}

func TestSelect(t *testing.T) {
	c, srv := newClient(t)
	require.NoError(t, srv.Seed("ds", alice))
	srv.Select = func(_, _ string, g *rdf.Graph) fuseki.SelectResult {
		var res fuseki.SelectResult
		res.Head.Vars = []string{"s"}
		for _, st := range g.Match(nil, &rdf.RDFType, nil) {
			res.Results.Bindings = append(res.Results.Bindings, fuseki.Binding{
				"s": {Type: "uri", Value: st.S.Value},
			})
		}
		return res
	}

	res, err := c.Select(context.Background(), "ds", "SELECT ?s WHERE { ?s a ?t }")
	require.NoError(t, err)
	require.Len(t, res.Results.Bindings, 1)
	assert.Equal(t, rdf.NSFerag+"Alice", res.Results.Bindings[0].Value("s"))
	assert.Equal(t, "", res.Results.Bindings[0].Value("missing"))
}
