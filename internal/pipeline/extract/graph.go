package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/yungbote/ferag-backend/internal/graph/rdf"
)

var (
	wsRun    = regexp.MustCompile(`\s+`)
	nonLocal = regexp.MustCompile(`[^\p{L}\p{N}_\-]`)
)

// Slug turns an entity title into a local IRI name.
func Slug(name string) string {
	s := strings.TrimSpace(name)
	s = wsRun.ReplaceAllString(s, "_")
	s = nonLocal.ReplaceAllString(s, "")
	if s == "" {
		return "entity"
	}
	return s
}

var typeClasses = map[string]string{
	"PERSON":       "Person",
	"ORGANIZATION": "Organization",
	"EVENT":        "Event",
	"GEO":          "Location",
}

// TypeFor maps an indexer entity type to a ferag class local name.
func TypeFor(raw string) string {
	if c, ok := typeClasses[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return c
	}
	return "Thing"
}

// ToGraph converts the entity and relationship tables into ferag instance
// statements. Rows without a title, source or target are skipped.
func ToGraph(entities []Entity, relationships []Relationship) *rdf.Graph {
	g := rdf.NewGraph()
	for _, e := range entities {
		title := strings.TrimSpace(e.Title)
		if title == "" {
			continue
		}
		subj := rdf.NewIRI(rdf.NSFerag + Slug(title))
		g.Add(rdf.Statement{S: subj, P: rdf.RDFType, O: rdf.NewIRI(rdf.NSFerag + TypeFor(e.Type))})
		if d := strings.TrimSpace(e.Description); d != "" {
			g.Add(rdf.Statement{S: subj, P: rdf.FeragDesc, O: rdf.NewLiteral(d)})
		}
	}
	for i, r := range relationships {
		src, tgt := strings.TrimSpace(r.Source), strings.TrimSpace(r.Target)
		if src == "" || tgt == "" {
			continue
		}
		node := rdf.NewBlank("r" + strconv.Itoa(i))
		g.Add(rdf.Statement{S: node, P: rdf.RDFType, O: rdf.FeragRelation})
		g.Add(rdf.Statement{S: node, P: rdf.FeragFrom, O: rdf.NewIRI(rdf.NSFerag + Slug(src))})
		g.Add(rdf.Statement{S: node, P: rdf.FeragTo, O: rdf.NewIRI(rdf.NSFerag + Slug(tgt))})
		if d := strings.TrimSpace(r.Description); d != "" {
			g.Add(rdf.Statement{S: node, P: rdf.FeragDesc, O: rdf.NewLiteral(d)})
		}
		if r.Weight != nil {
			g.Add(rdf.Statement{S: node, P: rdf.FeragWeight, O: rdf.NewTypedLiteral(formatDouble(*r.Weight), rdf.XSDDouble)})
		}
	}
	return g
}

// formatDouble renders w the way xsd:double literals usually look: always
// with a fractional part or exponent.
func formatDouble(w float64) string {
	s := strconv.FormatFloat(w, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnNI") {
		s += ".0"
	}
	return s
}
