package merge

import (
	"fmt"
	"strings"

	"github.com/yungbote/ferag-backend/internal/graph/rdf"
)

// TripleReport is diagnostic output of Triples. It never affects the merge.
type TripleReport struct {
	InputA                 int `json:"input_a"`
	InputB                 int `json:"input_b"`
	Output                 int `json:"output"`
	Added                  int `json:"added"`
	SkippedDuplicates      int `json:"skipped_duplicates"`
	DescriptionsOverridden int `json:"descriptions_overridden"`
	RelationshipsCollapsed int `json:"relationships_collapsed"`
}

func (r TripleReport) String() string {
	var b strings.Builder
	b.WriteString("=== Triple merge report ===\n")
	fmt.Fprintf(&b, "Input A statements: %d\n", r.InputA)
	fmt.Fprintf(&b, "Input B statements: %d\n", r.InputB)
	fmt.Fprintf(&b, "Output statements:  %d\n", r.Output)
	b.WriteString("\n")
	b.WriteString("Exact duplicates are counted once.\n")
	b.WriteString("Colliding (subject, ferag:description) pairs keep B's value.\n")
	b.WriteString("Relationship records with equal (from, to, description) are collapsed.\n")
	b.WriteString("\n")
	fmt.Fprintf(&b, "Added from B: %d\n", r.Added)
	fmt.Fprintf(&b, "Exact duplicates skipped: %d\n", r.SkippedDuplicates)
	fmt.Fprintf(&b, "Descriptions overridden by B: %d\n", r.DescriptionsOverridden)
	fmt.Fprintf(&b, "Relationship records collapsed: %d\n", r.RelationshipsCollapsed)
	return b.String()
}

// Triples merges two instance graphs; b is the newer one. See TriplesGraph.
func Triples(a, b string) (string, TripleReport, error) {
	ga, err := rdf.ParseTurtle(a)
	if err != nil {
		return "", TripleReport{}, fmt.Errorf("triples A: %w", err)
	}
	gb, err := rdf.ParseTurtle(b)
	if err != nil {
		return "", TripleReport{}, fmt.Errorf("triples B: %w", err)
	}
	out, rep := TriplesGraph(ga, gb)
	return rdf.WriteTurtle(out), rep, nil
}

// TriplesGraph merges b into a copy of a:
//
//  1. every statement of a is kept;
//  2. each ferag:description of b on a named subject replaces the
//     accumulator's descriptions of that subject;
//  3. the remaining statements of b are added unless already present;
//  4. ferag:Relationship blank nodes sharing (from, to, description) are
//     collapsed onto the first one seen, and every statement mentioning a
//     discarded node is dropped.
//
// Blank nodes of a and b are relabelled first so they never alias.
func TriplesGraph(a, b *rdf.Graph) (*rdf.Graph, TripleReport) {
	ga := a.Relabel("a")
	gb := b.Relabel("b")
	rep := TripleReport{InputA: ga.Len(), InputB: gb.Len()}

	acc := ga.Clone()

	handled := map[rdf.Statement]bool{}
	for _, st := range gb.Match(nil, &rdf.FeragDesc, nil) {
		if st.S.IsBlank() {
			continue
		}
		subj := st.S
		for _, old := range acc.Match(&subj, &rdf.FeragDesc, nil) {
			if old != st {
				acc.Remove(old)
				rep.DescriptionsOverridden++
			}
		}
		acc.Add(st)
		handled[st] = true
	}

	for _, st := range gb.Statements() {
		if acc.Has(st) {
			rep.SkippedDuplicates++
			continue
		}
		if handled[st] {
			continue
		}
		acc.Add(st)
		rep.Added++
	}

	rep.RelationshipsCollapsed = collapseRelationships(acc)
	rep.Output = acc.Len()
	return acc, rep
}

type relKey struct {
	from, to string
	desc     string
	hasDesc  bool
}

func collapseRelationships(g *rdf.Graph) int {
	groups := map[relKey][]rdf.Term{}
	var keys []relKey
	for _, st := range g.Match(nil, &rdf.RDFType, &rdf.FeragRelation) {
		node := st.S
		if !node.IsBlank() {
			continue
		}
		k, ok := relationshipKey(g, node)
		if !ok {
			continue
		}
		if _, seen := groups[k]; !seen {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], node)
	}

	removed := 0
	for _, k := range keys {
		nodes := groups[k]
		for _, n := range nodes[1:] {
			node := n
			for _, st := range g.Match(&node, nil, nil) {
				g.Remove(st)
			}
			for _, st := range g.Match(nil, nil, &node) {
				g.Remove(st)
			}
			removed++
		}
	}
	return removed
}

// relationshipKey reads from, to and description of node in one pass over
// its outgoing statements. Multi-valued attributes contribute their smallest
// object by key so the result is stable.
func relationshipKey(g *rdf.Graph, node rdf.Term) (relKey, bool) {
	var (
		k              relKey
		hasFrom, hasTo bool
	)
	pick := func(cur string, have bool, t rdf.Term) string {
		if !have || t.Key() < cur {
			return t.Key()
		}
		return cur
	}
	for _, st := range g.Match(&node, nil, nil) {
		switch st.P {
		case rdf.FeragFrom:
			k.from = pick(k.from, hasFrom, st.O)
			hasFrom = true
		case rdf.FeragTo:
			k.to = pick(k.to, hasTo, st.O)
			hasTo = true
		case rdf.FeragDesc:
			k.desc = pick(k.desc, k.hasDesc, st.O)
			k.hasDesc = true
		}
	}
	return k, hasFrom && hasTo
}
