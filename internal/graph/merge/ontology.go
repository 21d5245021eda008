package merge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/ferag-backend/internal/graph/rdf"
)

// OntologyReport compares the class and property vocabularies of the two
// inputs by local name.
type OntologyReport struct {
	InputA           int      `json:"input_a"`
	InputB           int      `json:"input_b"`
	Output           int      `json:"output"`
	ClassesOnlyA     []string `json:"classes_only_a"`
	ClassesOnlyB     []string `json:"classes_only_b"`
	ClassesCommon    []string `json:"classes_common"`
	PropertiesOnlyA  []string `json:"properties_only_a"`
	PropertiesOnlyB  []string `json:"properties_only_b"`
	PropertiesCommon []string `json:"properties_common"`
}

func (r OntologyReport) String() string {
	var b strings.Builder
	b.WriteString("=== Ontology merge report ===\n")
	fmt.Fprintf(&b, "Input A statements: %d\n", r.InputA)
	fmt.Fprintf(&b, "Input B statements: %d\n", r.InputB)
	fmt.Fprintf(&b, "Output statements:  %d\n", r.Output)
	section := func(title string, names []string) {
		fmt.Fprintf(&b, "\n%s (%d):\n", title, len(names))
		for _, n := range names {
			fmt.Fprintf(&b, "  - %s\n", n)
		}
	}
	section("Classes only in A", r.ClassesOnlyA)
	section("Classes only in B", r.ClassesOnlyB)
	section("Classes in both", r.ClassesCommon)
	section("Object properties only in A", r.PropertiesOnlyA)
	section("Object properties only in B", r.PropertiesOnlyB)
	section("Object properties in both", r.PropertiesCommon)
	return b.String()
}

// Ontologies returns the set union of two ontology documents.
func Ontologies(a, b string) (string, OntologyReport, error) {
	ga, err := rdf.ParseTurtle(a)
	if err != nil {
		return "", OntologyReport{}, fmt.Errorf("ontology A: %w", err)
	}
	gb, err := rdf.ParseTurtle(b)
	if err != nil {
		return "", OntologyReport{}, fmt.Errorf("ontology B: %w", err)
	}
	out, rep := OntologiesGraph(ga, gb)
	return rdf.WriteTurtle(out), rep, nil
}

// OntologiesGraph unions a and b by exact statement equality. No inference
// is performed; hierarchy and domain/range statements pass through as is.
func OntologiesGraph(a, b *rdf.Graph) (*rdf.Graph, OntologyReport) {
	ga := a.Relabel("a")
	gb := b.Relabel("b")
	out := ga.Clone()
	for _, st := range gb.Statements() {
		out.Add(st)
	}

	rep := OntologyReport{InputA: ga.Len(), InputB: gb.Len(), Output: out.Len()}
	rep.ClassesOnlyA, rep.ClassesOnlyB, rep.ClassesCommon = compare(typed(ga, rdf.OWLClass), typed(gb, rdf.OWLClass))
	rep.PropertiesOnlyA, rep.PropertiesOnlyB, rep.PropertiesCommon = compare(typed(ga, rdf.OWLObjectProp), typed(gb, rdf.OWLObjectProp))
	return out, rep
}

func typed(g *rdf.Graph, class rdf.Term) map[string]bool {
	out := map[string]bool{}
	for _, st := range g.Match(nil, &rdf.RDFType, &class) {
		if st.S.IsIRI() {
			out[st.S.LocalName()] = true
		}
	}
	return out
}

func compare(a, b map[string]bool) (onlyA, onlyB, common []string) {
	onlyA, onlyB, common = []string{}, []string{}, []string{}
	for n := range a {
		if b[n] {
			common = append(common, n)
		} else {
			onlyA = append(onlyA, n)
		}
	}
	for n := range b {
		if !a[n] {
			onlyB = append(onlyB, n)
		}
	}
	sort.Strings(onlyA)
	sort.Strings(onlyB)
	sort.Strings(common)
	return onlyA, onlyB, common
}
