package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/yungbote/ferag-backend/internal/pipeline/extract"
)

const instruction = `
From the data above, extract a COMPLETE OWL ontology in Turtle format. You MUST:
1. Define an owl:Class for every entity type listed (and any extra from communities).
2. Define an owl:ObjectProperty for every distinct relationship type that appears in the triplets.
3. Add rdfs:subClassOf hierarchy where appropriate (e.g. Company subClassOf Organization).
4. For every object property, add rdfs:domain and rdfs:range to the classes you defined.

Use prefix: @prefix : <http://example.org/ferag/schema#> .
Output ONLY valid Turtle, no markdown or explanation before/after. If you use a code block, use ` + "```turtle and ```." + `
`

// BuildPrompt renders the full induction prompt: entity type counts, every
// triplet, every community report, then the output instructions.
func BuildPrompt(t *extract.Tables) string {
	var lines []string

	lines = append(lines, "ENTITY TYPES (from data, include each as owl:Class):")
	for _, tc := range typeCounts(t.Entities) {
		lines = append(lines, fmt.Sprintf("  - %s: %d entities", tc.name, tc.count))
	}
	lines = append(lines, "")

	lines = append(lines, "TRIPLETS (subject, object, relationship description) — include each relationship type as owl:ObjectProperty:")
	for _, r := range t.Relationships {
		lines = append(lines, fmt.Sprintf("  - %s -> %s: %s", r.Source, r.Target, strings.TrimSpace(r.Description)))
	}

	lines = append(lines, "\nCOMMUNITIES (title, level, full summary):")
	for _, r := range t.Reports {
		lines = append(lines, fmt.Sprintf("  - [%d] %s: %s", r.Level, r.Title, strings.TrimSpace(r.Summary)))
	}

	return strings.Join(lines, "\n") + "\n" + instruction
}

type typeCount struct {
	name  string
	count int
}

// typeCounts orders entity types by frequency, then name. Blank types are
// not counted.
func typeCounts(entities []extract.Entity) []typeCount {
	counts := map[string]int{}
	for _, e := range entities {
		if e.Type == "" {
			continue
		}
		counts[e.Type]++
	}
	out := make([]typeCount, 0, len(counts))
	for n, c := range counts {
		out = append(out, typeCount{name: n, count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	return out
}

var fenced = regexp.MustCompile("(?is)```(?:turtle|ttl)?\\s*\\n(.*?)```")

// ExtractTurtle returns the contents of the first fenced block of text, or
// the whole trimmed text when there is none.
func ExtractTurtle(text string) string {
	text = strings.TrimSpace(text)
	if m := fenced.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}
