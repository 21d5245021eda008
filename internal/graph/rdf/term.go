// Package rdf is the in-memory statement model shared by the extraction
// adapter and the merge engine, with a Turtle reader and a deterministic
// Turtle writer.
package rdf

import (
	"strings"
)

const (
	NSFerag  = "http://example.org/ferag#"
	NSSchema = "http://example.org/ferag/schema#"
	NSRDF    = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NSRDFS   = "http://www.w3.org/2000/01/rdf-schema#"
	NSOWL    = "http://www.w3.org/2002/07/owl#"
	NSXSD    = "http://www.w3.org/2001/XMLSchema#"
)

var (
	RDFType       = NewIRI(NSRDF + "type")
	OWLClass      = NewIRI(NSOWL + "Class")
	OWLObjectProp = NewIRI(NSOWL + "ObjectProperty")
	FeragDesc     = NewIRI(NSFerag + "description")
	FeragFrom     = NewIRI(NSFerag + "from")
	FeragTo       = NewIRI(NSFerag + "to")
	FeragWeight   = NewIRI(NSFerag + "weight")
	FeragRelation = NewIRI(NSFerag + "Relationship")
	XSDString     = NSXSD + "string"
	XSDDouble     = NSXSD + "double"
	rdfLangString = NSRDF + "langString"
)

type TermKind uint8

const (
	KindIRI TermKind = iota + 1
	KindBlank
	KindLiteral
)

// Term is a tagged RDF term. Datatype is empty for plain string literals and
// Lang is set only for language-tagged literals, so two equal literals always
// compare equal with ==.
type Term struct {
	Kind     TermKind
	Value    string
	Datatype string
	Lang     string
}

func NewIRI(iri string) Term { return Term{Kind: KindIRI, Value: iri} }

func NewBlank(label string) Term { return Term{Kind: KindBlank, Value: label} }

func NewLiteral(v string) Term { return Term{Kind: KindLiteral, Value: v} }

func NewTypedLiteral(v, datatype string) Term {
	if datatype == XSDString {
		datatype = ""
	}
	return Term{Kind: KindLiteral, Value: v, Datatype: datatype}
}

func NewLangLiteral(v, lang string) Term {
	return Term{Kind: KindLiteral, Value: v, Lang: strings.ToLower(lang)}
}

func (t Term) IsIRI() bool     { return t.Kind == KindIRI }
func (t Term) IsBlank() bool   { return t.Kind == KindBlank }
func (t Term) IsLiteral() bool { return t.Kind == KindLiteral }

// LocalName is the part of an IRI after the last '#' or '/'.
func (t Term) LocalName() string {
	v := t.Value
	if i := strings.LastIndexAny(v, "#/"); i >= 0 {
		return v[i+1:]
	}
	return v
}

// Key renders the term in N-Triples form; it is unique per term.
func (t Term) Key() string {
	switch t.Kind {
	case KindIRI:
		return "<" + t.Value + ">"
	case KindBlank:
		return "_:" + t.Value
	case KindLiteral:
		s := `"` + escapeLiteral(t.Value) + `"`
		if t.Lang != "" {
			return s + "@" + t.Lang
		}
		if t.Datatype != "" {
			return s + "^^<" + t.Datatype + ">"
		}
		return s
	default:
		return ""
	}
}

func (t Term) String() string { return t.Key() }

// Statement is one (subject, predicate, object) triple. It is comparable and
// used directly as a map key.
type Statement struct {
	S, P, O Term
}

func (s Statement) Key() string {
	return s.S.Key() + " " + s.P.Key() + " " + s.O.Key() + " ."
}

func (s Statement) String() string { return s.Key() }

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func escapeLiteral(s string) string {
	return literalEscaper.Replace(s)
}
