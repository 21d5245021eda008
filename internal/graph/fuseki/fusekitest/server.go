// Package fusekitest runs an in-process stand-in for the Fuseki endpoints the
// client uses: the dataset admin API, SPARQL update (clear only), CONSTRUCT
// export and the Graph Store default graph.
package fusekitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/yungbote/ferag-backend/internal/graph/fuseki"
	"github.com/yungbote/ferag-backend/internal/graph/rdf"
)

// SelectFunc answers SELECT queries for a dataset.
type SelectFunc func(dataset, query string, g *rdf.Graph) fuseki.SelectResult

type Server struct {
	*httptest.Server

	mu       sync.Mutex
	datasets map[string]*rdf.Graph
	loads    int
	failOps  map[string]int
	calls    []string

	// Select handles SELECT queries. Nil means 400 for any SELECT.
	Select SelectFunc
}

func New() *Server {
	s := &Server{
		datasets: map[string]*rdf.Graph{},
		failOps:  map[string]int{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// FailOn makes every request whose operation matches op answer status.
// Operations: create, delete, list, update, query, load.
func (s *Server) FailOn(op string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOps[op] = status
}

// Seed creates name (if needed) and replaces its content with ttl.
func (s *Server) Seed(name, ttl string) error {
	g, err := rdf.ParseTurtle(ttl)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasets[name] = g
	return nil
}

func (s *Server) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.datasets[name]
	return ok
}

// Graph returns a copy of the dataset content, or nil if it does not exist.
func (s *Server) Graph(name string) *rdf.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.datasets[name]
	if !ok {
		return nil
	}
	return g.Clone()
}

func (s *Server) Datasets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.datasets))
	for n := range s.datasets {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Calls lists "op dataset" for every request served, in arrival order.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	switch {
	case path == "$/datasets" && r.Method == http.MethodPost:
		s.create(w, r)
	case path == "$/datasets" && r.Method == http.MethodGet:
		s.list(w)
	case strings.HasPrefix(path, "$/datasets/") && r.Method == http.MethodDelete:
		s.delete(w, strings.TrimPrefix(path, "$/datasets/"))
	case strings.HasSuffix(path, "/update"):
		s.update(w, r, strings.TrimSuffix(path, "/update"))
	case strings.HasSuffix(path, "/query"):
		s.query(w, r, strings.TrimSuffix(path, "/query"))
	case strings.HasSuffix(path, "/data"):
		s.load(w, r, strings.TrimSuffix(path, "/data"))
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) begin(w http.ResponseWriter, op, ds string) bool {
	s.calls = append(s.calls, strings.TrimSpace(op+" "+ds))
	if st, ok := s.failOps[op]; ok {
		http.Error(w, "injected failure", st)
		return false
	}
	return true
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	name := r.PostForm.Get("dbName")
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.begin(w, "create", name) {
		return
	}
	if name == "" {
		http.Error(w, "dbName required", http.StatusBadRequest)
		return
	}
	if _, ok := s.datasets[name]; ok {
		http.Error(w, "exists", http.StatusConflict)
		return
	}
	s.datasets[name] = rdf.NewGraph()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) list(w http.ResponseWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.begin(w, "list", "") {
		return
	}
	type ds struct {
		Name string `json:"ds.name"`
	}
	var body struct {
		Datasets []ds `json:"datasets"`
	}
	names := make([]string, 0, len(s.datasets))
	for n := range s.datasets {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		body.Datasets = append(body.Datasets, ds{Name: "/" + n})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) delete(w http.ResponseWriter, name string) {
	name, _ = url.PathUnescape(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.begin(w, "delete", name) {
		return
	}
	if _, ok := s.datasets[name]; !ok {
		http.Error(w, "no such dataset", http.StatusNotFound)
		return
	}
	delete(s.datasets, name)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request, name string) {
	raw, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.begin(w, "update", name) {
		return
	}
	g, ok := s.datasets[name]
	if !ok {
		http.Error(w, "no such dataset", http.StatusNotFound)
		return
	}
	if strings.TrimSpace(string(raw)) != fuseki.ClearAll {
		http.Error(w, "unsupported update", http.StatusBadRequest)
		return
	}
	for _, st := range g.Statements() {
		g.Remove(st)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) query(w http.ResponseWriter, r *http.Request, name string) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	q := r.PostForm.Get("query")
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.begin(w, "query", name) {
		return
	}
	g, ok := s.datasets[name]
	if !ok {
		http.Error(w, "no such dataset", http.StatusNotFound)
		return
	}
	upper := strings.ToUpper(strings.TrimSpace(q))
	switch {
	case strings.HasPrefix(upper, "CONSTRUCT"):
		w.Header().Set("Content-Type", "text/turtle")
		if g.Len() == 0 {
			return
		}
		_, _ = io.WriteString(w, rdf.WriteTurtle(g))
	case strings.Contains(upper, "SELECT") && s.Select != nil:
		res := s.Select(name, q, g.Clone())
		w.Header().Set("Content-Type", "application/sparql-results+json")
		_ = json.NewEncoder(w).Encode(res)
	default:
		http.Error(w, "unsupported query", http.StatusBadRequest)
	}
}

func (s *Server) load(w http.ResponseWriter, r *http.Request, name string) {
	raw, _ := io.ReadAll(r.Body)
	in, err := rdf.ParseTurtle(string(raw))
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.begin(w, "load", name) {
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	g, ok := s.datasets[name]
	if !ok {
		http.Error(w, "no such dataset", http.StatusNotFound)
		return
	}
	s.loads++
	in = in.Relabel(fmt.Sprintf("l%d_", s.loads))
	switch r.Method {
	case http.MethodPut:
		g = rdf.NewGraph()
		s.datasets[name] = g
	case http.MethodPost:
	default:
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	for _, st := range in.Statements() {
		g.Add(st)
	}
	w.WriteHeader(http.StatusOK)
}
