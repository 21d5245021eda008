package rdf

import (
	"sort"
	"strconv"
	"strings"
)

// Graph is a set of statements that remembers insertion order. Statements
// are indexed by subject, predicate and object so pattern lookups touch only
// the candidates of their most selective bound position.
type Graph struct {
	order []Statement
	// set maps each live statement to its position in order.
	set  map[Statement]int
	byS  termIndex
	byP  termIndex
	byO  termIndex
	dead int
}

type termIndex map[Term]map[Statement]struct{}

func (ix termIndex) add(t Term, st Statement) {
	bucket, ok := ix[t]
	if !ok {
		bucket = make(map[Statement]struct{})
		ix[t] = bucket
	}
	bucket[st] = struct{}{}
}

func (ix termIndex) remove(t Term, st Statement) {
	bucket := ix[t]
	delete(bucket, st)
	if len(bucket) == 0 {
		delete(ix, t)
	}
}

func NewGraph() *Graph {
	return &Graph{
		set: make(map[Statement]int),
		byS: make(termIndex),
		byP: make(termIndex),
		byO: make(termIndex),
	}
}

// Add inserts st and reports whether it was new.
func (g *Graph) Add(st Statement) bool {
	if _, ok := g.set[st]; ok {
		return false
	}
	g.set[st] = len(g.order)
	g.order = append(g.order, st)
	g.byS.add(st.S, st)
	g.byP.add(st.P, st)
	g.byO.add(st.O, st)
	return true
}

func (g *Graph) Has(st Statement) bool {
	_, ok := g.set[st]
	return ok
}

// Remove deletes st and reports whether it was present.
func (g *Graph) Remove(st Statement) bool {
	if _, ok := g.set[st]; !ok {
		return false
	}
	delete(g.set, st)
	g.byS.remove(st.S, st)
	g.byP.remove(st.P, st)
	g.byO.remove(st.O, st)
	g.dead++
	if g.dead > 64 && g.dead > len(g.set) {
		g.compact()
	}
	return true
}

func (g *Graph) Len() int { return len(g.set) }

// Statements returns the live statements in insertion order.
func (g *Graph) Statements() []Statement {
	out := make([]Statement, 0, len(g.set))
	for i, st := range g.order {
		if pos, live := g.set[st]; live && pos == i {
			out = append(out, st)
		}
	}
	return out
}

// Match returns statements matching the non-nil pattern positions, in
// insertion order.
func (g *Graph) Match(s, p, o *Term) []Statement {
	var candidates map[Statement]struct{}
	narrow := func(ix termIndex, t *Term) bool {
		if t == nil {
			return true
		}
		bucket := ix[*t]
		if candidates == nil || len(bucket) < len(candidates) {
			candidates = bucket
		}
		return len(bucket) > 0
	}
	if !narrow(g.byS, s) || !narrow(g.byP, p) || !narrow(g.byO, o) {
		return nil
	}
	if candidates == nil {
		return g.Statements()
	}

	var out []Statement
	for st := range candidates {
		if s != nil && st.S != *s {
			continue
		}
		if p != nil && st.P != *p {
			continue
		}
		if o != nil && st.O != *o {
			continue
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return g.set[out[i]] < g.set[out[j]] })
	return out
}

func (g *Graph) Clone() *Graph {
	c := NewGraph()
	for _, st := range g.Statements() {
		c.Add(st)
	}
	return c
}

// Equal reports set equality.
func (g *Graph) Equal(other *Graph) bool {
	if g.Len() != other.Len() {
		return false
	}
	for st := range g.set {
		if !other.Has(st) {
			return false
		}
	}
	return true
}

// Relabel returns a copy whose blank nodes are renamed prefix0, prefix1, ...
// in order of first appearance. Use it before combining graphs parsed
// independently, since their blank labels are only locally scoped.
func (g *Graph) Relabel(prefix string) *Graph {
	names := map[string]string{}
	rename := func(t Term) Term {
		if !t.IsBlank() {
			return t
		}
		n, ok := names[t.Value]
		if !ok {
			n = prefix + strconv.Itoa(len(names))
			names[t.Value] = n
		}
		return NewBlank(n)
	}
	out := NewGraph()
	for _, st := range g.Statements() {
		out.Add(Statement{S: rename(st.S), P: st.P, O: rename(st.O)})
	}
	return out
}

// Blanks lists blank node labels in order of first appearance.
func (g *Graph) Blanks() []string {
	var out []string
	seen := map[string]bool{}
	for _, st := range g.Statements() {
		for _, t := range []Term{st.S, st.O} {
			if t.IsBlank() && !seen[t.Value] {
				seen[t.Value] = true
				out = append(out, t.Value)
			}
		}
	}
	return out
}

// Canonical returns a copy with blank labels b0, b1, ... assigned by the
// sorted content signature of each node, and statements in sorted order.
// Two graphs that differ only in blank labels and statement order produce
// identical canonical forms, as long as no two blank nodes share a signature
// in an order-dependent way.
func (g *Graph) Canonical() *Graph {
	blanks := g.Blanks()
	sig := make(map[string]string, len(blanks))
	if len(blanks) > 0 {
		parts := make(map[string][]string, len(blanks))
		for _, st := range g.Statements() {
			if st.S.IsBlank() {
				parts[st.S.Value] = append(parts[st.S.Value], "out "+st.P.Key()+" "+anonKey(st.O))
			}
			if st.O.IsBlank() {
				parts[st.O.Value] = append(parts[st.O.Value], "in "+anonKey(st.S)+" "+st.P.Key())
			}
		}
		for _, b := range blanks {
			p := parts[b]
			sort.Strings(p)
			sig[b] = strings.Join(p, "\n")
		}
	}
	ordered := append([]string(nil), blanks...)
	sort.SliceStable(ordered, func(i, j int) bool { return sig[ordered[i]] < sig[ordered[j]] })
	names := make(map[string]string, len(ordered))
	for i, b := range ordered {
		names[b] = "b" + strconv.Itoa(i)
	}
	rename := func(t Term) Term {
		if t.IsBlank() {
			return NewBlank(names[t.Value])
		}
		return t
	}
	stmts := make([]Statement, 0, g.Len())
	for _, st := range g.Statements() {
		stmts = append(stmts, Statement{S: rename(st.S), P: st.P, O: rename(st.O)})
	}
	SortStatements(stmts)
	out := NewGraph()
	for _, st := range stmts {
		out.Add(st)
	}
	return out
}

// SortStatements orders statements with named subjects first, then blank
// subjects, each by subject, predicate and object key.
func SortStatements(stmts []Statement) {
	sort.SliceStable(stmts, func(i, j int) bool {
		a, b := stmts[i], stmts[j]
		if a.S.IsBlank() != b.S.IsBlank() {
			return !a.S.IsBlank()
		}
		if ka, kb := subjectSortKey(a.S), subjectSortKey(b.S); ka != kb {
			return ka < kb
		}
		if ka, kb := a.P.Key(), b.P.Key(); ka != kb {
			if a.P == RDFType || b.P == RDFType {
				return a.P == RDFType
			}
			return ka < kb
		}
		return a.O.Key() < b.O.Key()
	})
}

// Blank labels are compared numerically so b10 sorts after b9.
func subjectSortKey(t Term) string {
	if !t.IsBlank() {
		return t.Key()
	}
	v := t.Value
	i := len(v)
	for i > 0 && v[i-1] >= '0' && v[i-1] <= '9' {
		i--
	}
	if i == len(v) {
		return v
	}
	n, err := strconv.Atoi(v[i:])
	if err != nil {
		return v
	}
	return v[:i] + strconv.Itoa(100000000+n)
}

func anonKey(t Term) string {
	if t.IsBlank() {
		return "_"
	}
	return t.Key()
}

func (g *Graph) compact() {
	live := g.Statements()
	for i, st := range live {
		g.set[st] = i
	}
	g.order = live
	g.dead = 0
}
