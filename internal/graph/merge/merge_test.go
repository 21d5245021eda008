package merge

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/ferag-backend/internal/graph/rdf"
	perrors "github.com/yungbote/ferag-backend/internal/pkg/errors"
)

const header = `@prefix ferag: <http://example.org/ferag#> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .
`

const cycleOne = header + `
ferag:Alice_Smith a ferag:Person ;
    ferag:description "Engineer" .
ferag:TechCorp a ferag:Organization .
[] a ferag:Relationship ;
    ferag:from ferag:Alice_Smith ;
    ferag:to ferag:TechCorp ;
    ferag:description "works at" ;
    ferag:weight "1.0"^^xsd:double .
`

const cycleTwo = header + `
ferag:Alice_Smith a ferag:Person ;
    ferag:description "VP of AI" .
ferag:Bob a ferag:Person ;
    ferag:description "Analyst" .
[] a ferag:Relationship ;
    ferag:from ferag:Alice_Smith ;
    ferag:to ferag:TechCorp ;
    ferag:description "works at" ;
    ferag:weight "1.0"^^xsd:double .
[] a ferag:Relationship ;
    ferag:from ferag:Bob ;
    ferag:to ferag:TechCorp .
`

func parse(t *testing.T, ttl string) *rdf.Graph {
	t.Helper()
	g, err := rdf.ParseTurtle(ttl)
	require.NoError(t, err)
	return g
}

func description(g *rdf.Graph, local string) []string {
	subj := rdf.NewIRI(rdf.NSFerag + local)
	var out []string
	for _, st := range g.Match(&subj, &rdf.FeragDesc, nil) {
		out = append(out, st.O.Value)
	}
	return out
}

func relationshipCount(g *rdf.Graph) int {
	return len(g.Match(nil, &rdf.RDFType, &rdf.FeragRelation))
}

func TestTriplesNewerDescriptionWins(t *testing.T) {
	a, b := parse(t, cycleOne), parse(t, cycleTwo)

	ab, rep := TriplesGraph(a, b)
	assert.Equal(t, []string{"VP of AI"}, description(ab, "Alice_Smith"))
	assert.Equal(t, 1, rep.DescriptionsOverridden)

	ba, _ := TriplesGraph(b, a)
	assert.Equal(t, []string{"Engineer"}, description(ba, "Alice_Smith"))
}

func TestTriplesCollapsesRelationshipRecords(t *testing.T) {
	out, rep := TriplesGraph(parse(t, cycleOne), parse(t, cycleTwo))

	assert.Equal(t, 2, relationshipCount(out))
	assert.Equal(t, 1, rep.RelationshipsCollapsed)

	// No statement may reference a blank node that lost its type triple.
	live := map[string]bool{}
	for _, st := range out.Match(nil, &rdf.RDFType, &rdf.FeragRelation) {
		live[st.S.Value] = true
	}
	for _, st := range out.Statements() {
		if st.S.IsBlank() {
			assert.True(t, live[st.S.Value], "dangling subject %s", st)
		}
		if st.O.IsBlank() {
			assert.True(t, live[st.O.Value], "dangling object %s", st)
		}
	}
}

func TestTriplesDescriptionPresenceIsPartOfKey(t *testing.T) {
	in := header + `
[] a ferag:Relationship ; ferag:from ferag:A ; ferag:to ferag:B .
[] a ferag:Relationship ; ferag:from ferag:A ; ferag:to ferag:B ; ferag:description "knows" .
`
	out, rep := TriplesGraph(parse(t, in), rdf.NewGraph())
	assert.Equal(t, 2, relationshipCount(out))
	assert.Equal(t, 0, rep.RelationshipsCollapsed)
}

func TestTriplesIsIdempotent(t *testing.T) {
	a := parse(t, cycleOne)
	out, _ := TriplesGraph(a, a)
	assert.True(t, out.Canonical().Equal(a.Canonical()))
}

func TestTriplesCommutativeWithoutCollisions(t *testing.T) {
	a := parse(t, header+`
ferag:Carol a ferag:Person ; ferag:description "Designer" .
[] a ferag:Relationship ; ferag:from ferag:Carol ; ferag:to ferag:Dave ; ferag:description "mentors" .
`)
	b := parse(t, header+`
ferag:Dave a ferag:Person ; ferag:description "Intern" .
[] a ferag:Relationship ; ferag:from ferag:Carol ; ferag:to ferag:Dave ; ferag:description "mentors" .
`)
	ab, _ := TriplesGraph(a, b)
	ba, _ := TriplesGraph(b, a)
	assert.True(t, ab.Canonical().Equal(ba.Canonical()))
}

func TestTriplesWeightsAreNotConflictResolved(t *testing.T) {
	a := parse(t, header+`ferag:X ferag:weight "1.0"^^xsd:double .`)
	b := parse(t, header+`ferag:X ferag:weight "2.0"^^xsd:double .`)
	out, rep := TriplesGraph(a, b)
	x := rdf.NewIRI(rdf.NSFerag + "X")
	assert.Len(t, out.Match(&x, &rdf.FeragWeight, nil), 2)
	assert.Equal(t, 1, rep.Added)
}

func TestTriplesOutputIsByteStable(t *testing.T) {
	first, _, err := Triples(cycleOne, cycleTwo)
	require.NoError(t, err)
	second, _, err := Triples(cycleOne, cycleTwo)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestTriplesAgainstEmptyProd(t *testing.T) {
	out, rep, err := Triples(cycleOne, "# Empty dataset\n")
	require.NoError(t, err)
	assert.Equal(t, 0, rep.InputB)
	assert.Equal(t, rep.InputA, rep.Output)
	assert.True(t, parse(t, out).Canonical().Equal(parse(t, cycleOne).Canonical()))
}

// syntheticGraph builds n people in a ring, each with one relationship
// record pointing at the next person.
func syntheticGraph(n int) *rdf.Graph {
	g := rdf.NewGraph()
	person := rdf.NewIRI(rdf.NSFerag + "Person")
	for i := 0; i < n; i++ {
		subj := rdf.NewIRI(rdf.NSFerag + "P" + strconv.Itoa(i))
		next := rdf.NewIRI(rdf.NSFerag + "P" + strconv.Itoa((i+1)%n))
		rel := rdf.NewBlank("r" + strconv.Itoa(i))
		g.Add(rdf.Statement{S: subj, P: rdf.RDFType, O: person})
		g.Add(rdf.Statement{S: subj, P: rdf.FeragDesc, O: rdf.NewLiteral("member " + strconv.Itoa(i))})
		g.Add(rdf.Statement{S: rel, P: rdf.RDFType, O: rdf.FeragRelation})
		g.Add(rdf.Statement{S: rel, P: rdf.FeragFrom, O: subj})
		g.Add(rdf.Statement{S: rel, P: rdf.FeragTo, O: next})
		g.Add(rdf.Statement{S: rel, P: rdf.FeragDesc, O: rdf.NewLiteral("knows")})
	}
	return g
}

func TestTriplesScalesToLargeGraphs(t *testing.T) {
	const n = 5000
	g := syntheticGraph(n)

	start := time.Now()
	out, rep := TriplesGraph(g, g)
	elapsed := time.Since(start)

	assert.Equal(t, n, rep.RelationshipsCollapsed)
	assert.Equal(t, g.Len(), rep.Output)
	assert.Equal(t, n, relationshipCount(out))
	assert.Less(t, elapsed, 10*time.Second, "merge of %d statements took %s", g.Len(), elapsed)
}

func BenchmarkTriplesGraph(b *testing.B) {
	g := syntheticGraph(2000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		TriplesGraph(g, g)
	}
}

const ontoA = `@prefix : <http://example.org/ferag/schema#> .
@prefix owl: <http://www.w3.org/2002/07/owl#> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .

:Person a owl:Class .
:Company a owl:Class ; rdfs:subClassOf :Organization .
:worksAt a owl:ObjectProperty ; rdfs:domain :Person ; rdfs:range :Company .
`

const ontoB = `@prefix : <http://example.org/ferag/schema#> .
@prefix owl: <http://www.w3.org/2002/07/owl#> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .

:Person a owl:Class .
:Event a owl:Class .
:attends a owl:ObjectProperty ; rdfs:domain :Person ; rdfs:range :Event .
`

func TestOntologiesIsSetUnion(t *testing.T) {
	a, b := parse(t, ontoA), parse(t, ontoB)
	out, rep := OntologiesGraph(a, b)

	for _, st := range a.Statements() {
		assert.True(t, out.Has(st), "missing from A: %s", st)
	}
	for _, st := range b.Statements() {
		assert.True(t, out.Has(st), "missing from B: %s", st)
	}
	for _, st := range out.Statements() {
		assert.True(t, a.Has(st) || b.Has(st), "invented: %s", st)
	}

	assert.Equal(t, []string{"Company"}, rep.ClassesOnlyA)
	assert.Equal(t, []string{"Event"}, rep.ClassesOnlyB)
	assert.Equal(t, []string{"Person"}, rep.ClassesCommon)
	assert.Equal(t, []string{"worksAt"}, rep.PropertiesOnlyA)
	assert.Equal(t, []string{"attends"}, rep.PropertiesOnlyB)
	assert.Empty(t, rep.PropertiesCommon)
	assert.Equal(t, a.Len()+b.Len()-1, rep.Output)
	assert.Contains(t, rep.String(), "Classes only in B (1):\n  - Event")
}

func TestFilesReportMissingInput(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "a.ttl")
	require.NoError(t, os.WriteFile(present, []byte(cycleOne), 0o644))

	_, err := TriplesFiles(present, filepath.Join(dir, "missing.ttl"), filepath.Join(dir, "out.ttl"), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, perrors.ErrMergeInputMissing))
}

func TestFilesWriteOutputAndReport(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "extracted_ontology.ttl")
	b := filepath.Join(dir, "prod_export.ttl")
	require.NoError(t, os.WriteFile(a, []byte(ontoA), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("# Empty dataset\n"), 0o644))

	out := filepath.Join(dir, "integrated_ontology.ttl")
	report := filepath.Join(dir, "report.txt")
	rep, err := OntologiesFiles(a, b, out, report)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.InputB)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "schema:Company")
	txt, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(txt), "Ontology merge report")
}
