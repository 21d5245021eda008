package rdf

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	knakk "github.com/knakk/rdf"
)

// IsBlankDocument reports whether a Turtle document carries no statements:
// only whitespace and comment lines, such as the triplestore's empty export.
func IsBlankDocument(ttl string) bool {
	for _, line := range strings.Split(ttl, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return false
	}
	return true
}

// ParseTurtle decodes a Turtle document into a Graph.
func ParseTurtle(ttl string) (*Graph, error) {
	g := NewGraph()
	if IsBlankDocument(ttl) {
		return g, nil
	}
	dec := knakk.NewTripleDecoder(strings.NewReader(ttl), knakk.Turtle)
	for {
		tr, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse turtle: %w", err)
		}
		st, err := fromTriple(tr)
		if err != nil {
			return nil, err
		}
		g.Add(st)
	}
	return g, nil
}

func fromTriple(tr knakk.Triple) (Statement, error) {
	s, err := fromTerm(tr.Subj)
	if err != nil {
		return Statement{}, err
	}
	p, err := fromTerm(tr.Pred)
	if err != nil {
		return Statement{}, err
	}
	o, err := fromTerm(tr.Obj)
	if err != nil {
		return Statement{}, err
	}
	return Statement{S: s, P: p, O: o}, nil
}

func fromTerm(t knakk.Term) (Term, error) {
	switch t.Type() {
	case knakk.TermIRI:
		return NewIRI(t.String()), nil
	case knakk.TermBlank:
		return NewBlank(strings.TrimPrefix(t.String(), "_:")), nil
	case knakk.TermLiteral:
		lit, ok := t.(knakk.Literal)
		if !ok {
			return NewLiteral(t.String()), nil
		}
		if lang := lit.Lang(); lang != "" {
			return NewLangLiteral(lit.String(), lang), nil
		}
		dt := lit.DataType.String()
		if dt == rdfLangString {
			dt = ""
		}
		return NewTypedLiteral(lit.String(), dt), nil
	default:
		return Term{}, fmt.Errorf("parse turtle: unsupported term %q", t.String())
	}
}

type prefix struct {
	name, ns string
}

// Longer namespaces first so ferag/schema# wins over ferag#.
var writerPrefixes = []prefix{
	{"schema", NSSchema},
	{"ferag", NSFerag},
	{"rdf", NSRDF},
	{"rdfs", NSRDFS},
	{"owl", NSOWL},
	{"xsd", NSXSD},
}

var pnLocal = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_\-]*$`)

// WriteTurtle serializes g deterministically: the graph is canonicalised,
// statements are grouped by subject and every known namespace is declared.
func WriteTurtle(g *Graph) string {
	var b strings.Builder
	for _, p := range writerPrefixes {
		fmt.Fprintf(&b, "@prefix %s: <%s> .\n", p.name, p.ns)
	}
	stmts := g.Canonical().Statements()
	if len(stmts) == 0 {
		return b.String()
	}
	b.WriteString("\n")
	for i := 0; i < len(stmts); {
		subj := stmts[i].S
		j := i
		for j < len(stmts) && stmts[j].S == subj {
			j++
		}
		b.WriteString(formatTerm(subj))
		b.WriteString("\n")
		for k := i; k < j; k++ {
			st := stmts[k]
			pred := formatTerm(st.P)
			if st.P == RDFType {
				pred = "a"
			}
			term := " ;"
			if k == j-1 {
				term = " ."
			}
			fmt.Fprintf(&b, "    %s %s%s\n", pred, formatTerm(st.O), term)
		}
		b.WriteString("\n")
		i = j
	}
	return b.String()
}

func formatTerm(t Term) string {
	switch t.Kind {
	case KindIRI:
		return compactIRI(t.Value)
	case KindBlank:
		return "_:" + t.Value
	case KindLiteral:
		s := `"` + escapeLiteral(t.Value) + `"`
		if t.Lang != "" {
			return s + "@" + t.Lang
		}
		if t.Datatype != "" {
			return s + "^^" + compactIRI(t.Datatype)
		}
		return s
	default:
		return ""
	}
}

func compactIRI(iri string) string {
	for _, p := range writerPrefixes {
		local, ok := strings.CutPrefix(iri, p.ns)
		if !ok {
			continue
		}
		if pnLocal.MatchString(local) {
			return p.name + ":" + local
		}
		break
	}
	return "<" + strings.ReplaceAll(iri, ">", "%3E") + ">"
}
