package rdf

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `@prefix ferag: <http://example.org/ferag#> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .

ferag:Alice_Smith a ferag:Person ;
    ferag:description "VP of \"AI\"" .

_:r1 a ferag:Relationship ;
    ferag:from ferag:Alice_Smith ;
    ferag:to ferag:TechCorp ;
    ferag:weight "2.5"^^xsd:double .
`

func TestParseTurtle(t *testing.T) {
	g, err := ParseTurtle(sample)
	require.NoError(t, err)
	assert.Equal(t, 6, g.Len())

	alice := NewIRI(NSFerag + "Alice_Smith")
	assert.True(t, g.Has(Statement{S: alice, P: RDFType, O: NewIRI(NSFerag + "Person")}))
	assert.True(t, g.Has(Statement{S: alice, P: FeragDesc, O: NewLiteral(`VP of "AI"`)}))

	rels := g.Match(nil, &RDFType, &FeragRelation)
	require.Len(t, rels, 1)
	assert.True(t, rels[0].S.IsBlank())
	weights := g.Match(&rels[0].S, &FeragWeight, nil)
	require.Len(t, weights, 1)
	assert.Equal(t, NewTypedLiteral("2.5", XSDDouble), weights[0].O)
}

func TestParseEmptyDocuments(t *testing.T) {
	for _, in := range []string{"", "   \n", "# Empty dataset\n", "# Empty\n"} {
		g, err := ParseTurtle(in)
		require.NoError(t, err)
		assert.Equal(t, 0, g.Len())
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := ParseTurtle("this is not turtle")
	assert.Error(t, err)
}

func TestWriteTurtleRoundTrip(t *testing.T) {
	g, err := ParseTurtle(sample)
	require.NoError(t, err)

	out := WriteTurtle(g)
	assert.Contains(t, out, "@prefix ferag: <http://example.org/ferag#> .")
	assert.Contains(t, out, "ferag:Alice_Smith\n    a ferag:Person ;")
	assert.Contains(t, out, `"2.5"^^xsd:double`)

	back, err := ParseTurtle(out)
	require.NoError(t, err)
	assert.True(t, back.Canonical().Equal(g.Canonical()))
}

func TestWriteTurtleIsDeterministic(t *testing.T) {
	a := NewGraph()
	b := NewGraph()
	s1 := Statement{S: NewBlank("x"), P: RDFType, O: FeragRelation}
	s2 := Statement{S: NewBlank("x"), P: FeragFrom, O: NewIRI(NSFerag + "A")}
	s3 := Statement{S: NewIRI(NSFerag + "A"), P: FeragDesc, O: NewLiteral("a")}
	a.Add(s1)
	a.Add(s2)
	a.Add(s3)
	b.Add(Statement{S: NewBlank("other"), P: FeragFrom, O: NewIRI(NSFerag + "A")})
	b.Add(s3)
	b.Add(Statement{S: NewBlank("other"), P: RDFType, O: FeragRelation})

	assert.Equal(t, WriteTurtle(a), WriteTurtle(b))
}

func TestCompactIRIFallsBackToFullForm(t *testing.T) {
	assert.Equal(t, "ferag:Bob", compactIRI(NSFerag+"Bob"))
	assert.Equal(t, "schema:Person", compactIRI(NSSchema+"Person"))
	assert.Equal(t, "<http://example.org/ferag#1st>", compactIRI(NSFerag+"1st"))
	assert.Equal(t, "<http://example.org/other/x>", compactIRI("http://example.org/other/x"))
}

func TestRelabelKeepsStructure(t *testing.T) {
	g, err := ParseTurtle(sample)
	require.NoError(t, err)
	r := g.Relabel("a")
	assert.Equal(t, []string{"a0"}, r.Blanks())
	assert.True(t, r.Canonical().Equal(g.Canonical()))
}

func TestRemoveAndReAdd(t *testing.T) {
	g := NewGraph()
	st := Statement{S: NewIRI(NSFerag + "A"), P: FeragDesc, O: NewLiteral("x")}
	assert.True(t, g.Add(st))
	assert.False(t, g.Add(st))
	assert.True(t, g.Remove(st))
	assert.False(t, g.Remove(st))
	assert.Equal(t, 0, g.Len())
	assert.Empty(t, g.Statements())
	assert.True(t, g.Add(st))
	assert.Equal(t, []Statement{st}, g.Statements())
}

func TestMatchUsesIndexesAcrossRemovals(t *testing.T) {
	g := NewGraph()
	person := NewIRI(NSFerag + "Person")
	var subjects []Term
	for i := 0; i < 200; i++ {
		s := NewIRI(NSFerag + "P" + strconv.Itoa(i))
		subjects = append(subjects, s)
		g.Add(Statement{S: s, P: RDFType, O: person})
		g.Add(Statement{S: s, P: FeragDesc, O: NewLiteral("d" + strconv.Itoa(i))})
	}
	// Enough removals to force the insertion log to compact.
	for i := 0; i < 150; i++ {
		require.True(t, g.Remove(Statement{S: subjects[i], P: RDFType, O: person}))
	}
	for i := 0; i < 100; i++ {
		require.True(t, g.Remove(Statement{S: subjects[i], P: FeragDesc, O: NewLiteral("d" + strconv.Itoa(i))}))
	}
	assert.Equal(t, 150, g.Len())

	typed := g.Match(nil, &RDFType, &person)
	require.Len(t, typed, 50)
	assert.Equal(t, subjects[150], typed[0].S)
	assert.Equal(t, subjects[199], typed[49].S)

	assert.Len(t, g.Match(&subjects[120], nil, nil), 1)
	assert.Empty(t, g.Match(&subjects[120], &RDFType, nil))
	assert.Empty(t, g.Match(&subjects[10], nil, nil))
	missing := NewIRI(NSFerag + "Nobody")
	assert.Empty(t, g.Match(&missing, nil, nil))

	// Re-added statements move to the end of insertion order.
	g.Add(Statement{S: subjects[0], P: RDFType, O: person})
	typed = g.Match(nil, &RDFType, nil)
	require.Len(t, typed, 51)
	assert.Equal(t, subjects[0], typed[50].S)
	assert.Len(t, g.Statements(), 151)
}
