package naming

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForCycleNames(t *testing.T) {
	set, err := ForCycle(7, 3)
	require.NoError(t, err)
	assert.Equal(t, "ferag-00007", set.Prod)
	assert.Equal(t, "ferag-00007-new-00003", set.Staging)
	assert.Equal(t, "ferag-00007-new-00003-triples", set.TriplesDelta)
	assert.Equal(t, "ferag-00007-new-00003-ontology", set.OntologyDelta)
	assert.Equal(t, []string{set.TriplesDelta, set.OntologyDelta, set.Staging}, set.CycleScoped())
}

func TestNamesAreDisjointAcrossCyclesAndRags(t *testing.T) {
	seen := map[string]string{}
	add := func(name, origin string) {
		if prev, ok := seen[name]; ok && prev != origin {
			t.Fatalf("name %s produced by %s and %s", name, prev, origin)
		}
		seen[name] = origin
	}
	for rag := uint(1); rag <= 12; rag++ {
		prod, err := Prod(rag)
		require.NoError(t, err)
		add(prod, "prod")
		for n := uint(1); n <= 12; n++ {
			set, err := ForCycle(rag, n)
			require.NoError(t, err)
			for _, name := range set.CycleScoped() {
				if _, ok := seen[name]; ok {
					t.Fatalf("cycle-scoped name %s collides", name)
				}
				add(name, "cycle")
			}
		}
	}
	// 12 prod names plus 3 per (rag, cycle) pair.
	assert.Len(t, seen, 12+12*12*3)
}

func TestOutOfRangeIsRejected(t *testing.T) {
	_, err := Prod(0)
	assert.True(t, errors.Is(err, ErrOutOfRange))
	_, err = Prod(MaxID + 1)
	assert.True(t, errors.Is(err, ErrOutOfRange))
	_, err = ForCycle(1, MaxID+1)
	assert.True(t, errors.Is(err, ErrOutOfRange))

	name, err := Prod(MaxID)
	require.NoError(t, err)
	assert.Equal(t, "ferag-99999", name)
}

func TestParseRoundTrip(t *testing.T) {
	set, err := ForCycle(42, 9)
	require.NoError(t, err)

	cases := map[string]Name{
		set.Prod:          {Kind: KindProd, RagID: 42},
		set.Staging:       {Kind: KindStaging, RagID: 42, CycleN: 9},
		set.TriplesDelta:  {Kind: KindTriplesDelta, RagID: 42, CycleN: 9},
		set.OntologyDelta: {Kind: KindOntologyDelta, RagID: 42, CycleN: 9},
	}
	for in, want := range cases {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"other-00001", "ferag-1", "ferag-00001-old-00002", "ferag-00001-new-00002-misc", "ferag-00000"} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}
