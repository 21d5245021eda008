package services

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/yungbote/ferag-backend/internal/graph/fuseki"
)

const (
	keywordEntityLimit = 20
	entityLimit        = 15
	relationshipLimit  = 15
)

var stopWords = map[string]bool{
	"кто": true, "что": true, "где": true, "как": true, "какой": true, "какая": true,
	"какие": true, "почему": true, "когда": true, "какую": true, "какого": true, "чем": true,
	"который": true, "которой": true, "которых": true, "такой": true, "такое": true, "такая": true,
	"работает": true, "работать": true,
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "being": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "will": true, "would": true, "could": true,
	"should": true, "may": true, "might": true, "must": true, "can": true,
	"this": true, "that": true, "these": true, "those": true,
}

// ExtractKeywords splits question into lower-cased word tokens of at least
// two characters, dropping stop words and repeats.
func ExtractKeywords(question string) []string {
	tokens := strings.FieldsFunc(question, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_')
	})
	seen := map[string]bool{}
	out := []string{}
	for _, t := range tokens {
		low := strings.ToLower(t)
		if len([]rune(low)) < 2 || stopWords[low] || seen[low] {
			continue
		}
		seen[low] = true
		out = append(out, low)
	}
	return out
}

type contextEntity struct {
	Name, Type, Description string
}

type contextRelation struct {
	From, To, Description string
}

const sparqlPrefixes = `PREFIX rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#>
PREFIX ferag: <http://example.org/ferag#>
`

const entitySelect = sparqlPrefixes + `SELECT ?s ?type ?desc WHERE {
  ?s rdf:type ?type .
  FILTER(STRSTARTS(STR(?s), "http://example.org/ferag#"))
  FILTER(STRSTARTS(STR(?type), "http://example.org/ferag#"))
  OPTIONAL { ?s ferag:description ?desc }
  %s
} ORDER BY ?s
LIMIT %d`

const relationSelect = sparqlPrefixes + `SELECT ?from ?to ?desc WHERE {
  ?r a ferag:Relationship ;
     ferag:from ?from ;
     ferag:to ?to .
  OPTIONAL { ?r ferag:description ?desc }
  %s
} ORDER BY ?from ?to
LIMIT %d`

// BuildContext assembles the text block the model answers from. Entities
// matching a keyword by IRI or description come first, then relationships
// touching them, topped up by relationships whose description matches. With
// nothing matched it falls back to a fixed sample of the graph.
func BuildContext(ctx context.Context, q GraphQuerier, dataset, question string) (string, error) {
	keywords := ExtractKeywords(question)

	var entities []contextEntity
	var relations []contextRelation
	if len(keywords) > 0 {
		var err error
		entities, err = selectEntities(ctx, q, dataset, entityKeywordFilter(keywords), keywordEntityLimit)
		if err != nil {
			return "", err
		}
		relations, err = relationsForQuestion(ctx, q, dataset, entities, keywords)
		if err != nil {
			return "", err
		}
	}

	if len(entities) == 0 && len(relations) == 0 {
		var err error
		if entities, err = selectEntities(ctx, q, dataset, "", entityLimit); err != nil {
			return "", err
		}
		if relations, err = selectRelations(ctx, q, dataset, "", relationshipLimit); err != nil {
			return "", err
		}
	}
	return formatContext(entities, relations), nil
}

func relationsForQuestion(ctx context.Context, q GraphQuerier, dataset string, entities []contextEntity, keywords []string) ([]contextRelation, error) {
	type pair struct{ from, to string }
	seen := map[pair]bool{}
	var out []contextRelation
	add := func(rs []contextRelation) {
		for _, r := range rs {
			if len(out) >= relationshipLimit {
				return
			}
			k := pair{r.From, r.To}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, r)
		}
	}

	if len(entities) > 0 {
		names := make([]string, 0, len(entities))
		for _, e := range entities {
			names = append(names, e.Name)
		}
		byEntity, err := selectRelations(ctx, q, dataset, relationEntityFilter(names), relationshipLimit)
		if err != nil {
			return nil, err
		}
		add(byEntity)
	}
	if len(out) < relationshipLimit {
		byDesc, err := selectRelations(ctx, q, dataset, descriptionFilter(keywords), relationshipLimit)
		if err != nil {
			return nil, err
		}
		add(byDesc)
	}
	return out, nil
}

func selectEntities(ctx context.Context, q GraphQuerier, dataset, filter string, limit int) ([]contextEntity, error) {
	res, err := q.Select(ctx, dataset, fmt.Sprintf(entitySelect, filter, limit))
	if err != nil {
		return nil, err
	}
	out := make([]contextEntity, 0, len(res.Results.Bindings))
	for _, b := range res.Results.Bindings {
		out = append(out, contextEntity{
			Name:        localName(b.Value("s")),
			Type:        localName(b.Value("type")),
			Description: b.Value("desc"),
		})
	}
	return out, nil
}

func selectRelations(ctx context.Context, q GraphQuerier, dataset, filter string, limit int) ([]contextRelation, error) {
	res, err := q.Select(ctx, dataset, fmt.Sprintf(relationSelect, filter, limit))
	if err != nil {
		return nil, err
	}
	return parseRelations(res), nil
}

func parseRelations(res *fuseki.SelectResult) []contextRelation {
	out := make([]contextRelation, 0, len(res.Results.Bindings))
	for _, b := range res.Results.Bindings {
		out = append(out, contextRelation{
			From:        localName(b.Value("from")),
			To:          localName(b.Value("to")),
			Description: b.Value("desc"),
		})
	}
	return out
}

func entityKeywordFilter(keywords []string) string {
	parts := make([]string, 0, len(keywords))
	for _, w := range keywords {
		esc := sparqlEscape(w)
		parts = append(parts, fmt.Sprintf(`CONTAINS(LCASE(STR(?s)), "%s") || (BOUND(?desc) && CONTAINS(LCASE(STR(?desc)), "%s"))`, esc, esc))
	}
	return "FILTER(" + strings.Join(parts, " || ") + ")"
}

func relationEntityFilter(names []string) string {
	quoted := make([]string, 0, len(names))
	for _, n := range names {
		quoted = append(quoted, `"`+sparqlEscape(n)+`"`)
	}
	in := strings.Join(quoted, ", ")
	return fmt.Sprintf(`FILTER(REPLACE(STR(?from), "^.*#", "") IN (%s) || REPLACE(STR(?to), "^.*#", "") IN (%s))`, in, in)
}

func descriptionFilter(keywords []string) string {
	parts := make([]string, 0, len(keywords))
	for _, w := range keywords {
		parts = append(parts, fmt.Sprintf(`(BOUND(?desc) && CONTAINS(LCASE(STR(?desc)), "%s"))`, sparqlEscape(w)))
	}
	return "FILTER(" + strings.Join(parts, " || ") + ")"
}

func sparqlEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func localName(iri string) string {
	if i := strings.LastIndex(iri, "#"); i >= 0 {
		iri = iri[i+1:]
	}
	if i := strings.LastIndex(iri, "/"); i >= 0 {
		iri = iri[i+1:]
	}
	return iri
}

func formatContext(entities []contextEntity, relations []contextRelation) string {
	lines := []string{"=== Entities ==="}
	for _, e := range entities {
		lines = append(lines, fmt.Sprintf("Entity %s (type %s): %s", e.Name, e.Type, orDash(e.Description)))
	}
	lines = append(lines, "", "=== Relationships ===")
	for _, r := range relations {
		lines = append(lines, fmt.Sprintf("Relationship: %s -> %s: %s", r.From, r.To, orDash(r.Description)))
	}
	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "-"
	}
	return s
}
