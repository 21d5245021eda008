package fuseki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Binding is one solution row of a SELECT query, keyed by variable name.
type Binding map[string]BoundValue

type BoundValue struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

type SelectResult struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []Binding `json:"bindings"`
	} `json:"results"`
}

// Value returns the bound value of name, or "" when unbound.
func (b Binding) Value(name string) string {
	if v, ok := b[name]; ok {
		return v.Value
	}
	return ""
}

// Select runs a read query and decodes SPARQL JSON results.
func (c *Client) Select(ctx context.Context, name, query string) (*SelectResult, error) {
	form := url.Values{"query": {query}}
	status, body, err := c.do(ctx, c.query, http.MethodPost, "/"+url.PathEscape(name)+"/query", "application/x-www-form-urlencoded", "application/sparql-results+json", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, storeErr("select", name, 0, nil, err)
	}
	if !ok2xx(status) {
		return nil, storeErr("select", name, status, body, nil)
	}
	var out SelectResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, storeErr("select", name, status, body, fmt.Errorf("decode: %w", err))
	}
	return &out, nil
}
