// Package fuseki is a typed client for the Apache Jena Fuseki admin API,
// SPARQL endpoints and Graph Store protocol.
package fuseki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yungbote/ferag-backend/internal/pkg/httpx"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
)

// EmptyGraph is what ExportGraph returns for a dataset that does not exist
// or has no statements.
const EmptyGraph = "# Empty dataset\n"

const (
	constructAll = "CONSTRUCT { ?s ?p ?o } WHERE { ?s ?p ?o }"
	// ClearAll removes every statement of the default graph.
	ClearAll = "DELETE WHERE { ?s ?p ?o }"

	turtleContentType = "text/turtle; charset=utf-8"
)

type LoadMode int

const (
	// Replace swaps the default graph content for the payload.
	Replace LoadMode = iota
	// Append unions the payload into the default graph.
	Append
)

func (m LoadMode) String() string {
	if m == Append {
		return "append"
	}
	return "replace"
}

type Config struct {
	BaseURL      string
	User         string
	Password     string
	AdminTimeout time.Duration
	QueryTimeout time.Duration
	LoadTimeout  time.Duration
	HTTPClient   *http.Client
}

type Client struct {
	log     *logger.Logger
	base    string
	user    string
	pass    string
	admin   time.Duration
	query   time.Duration
	load    time.Duration
	httpCli *http.Client
}

func New(cfg Config, log *logger.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("fuseki: base url required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("fuseki: invalid base url: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	c := &Client{
		log:     log.With("service", "FusekiClient"),
		base:    base,
		user:    cfg.User,
		pass:    cfg.Password,
		admin:   orDefault(cfg.AdminTimeout, 30*time.Second),
		query:   orDefault(cfg.QueryTimeout, 120*time.Second),
		load:    orDefault(cfg.LoadTimeout, 300*time.Second),
		httpCli: cfg.HTTPClient,
	}
	if c.httpCli == nil {
		c.httpCli = &http.Client{}
	}
	return c, nil
}

// CreateDataset creates a TDB2 dataset. An existing dataset is not an error.
func (c *Client) CreateDataset(ctx context.Context, name string) error {
	form := url.Values{"dbName": {name}, "dbType": {"tdb2"}}
	status, body, err := c.do(ctx, c.admin, http.MethodPost, "/$/datasets", "application/x-www-form-urlencoded", "", strings.NewReader(form.Encode()))
	if err != nil {
		return storeErr("create_dataset", name, 0, nil, err)
	}
	if status == http.StatusConflict {
		c.log.Debug("Dataset already exists", "dataset", name)
		return nil
	}
	if !ok2xx(status) {
		return storeErr("create_dataset", name, status, body, nil)
	}
	c.log.Info("Created dataset", "dataset", name)
	return nil
}

// DeleteDataset removes a dataset. A missing dataset is not an error.
func (c *Client) DeleteDataset(ctx context.Context, name string) error {
	status, body, err := c.do(ctx, c.admin, http.MethodDelete, "/$/datasets/"+url.PathEscape(name), "", "", nil)
	if err != nil {
		return storeErr("delete_dataset", name, 0, nil, err)
	}
	if status == http.StatusNotFound {
		return nil
	}
	if !ok2xx(status) {
		return storeErr("delete_dataset", name, status, body, nil)
	}
	c.log.Info("Deleted dataset", "dataset", name)
	return nil
}

type datasetList struct {
	Datasets []struct {
		Name string `json:"ds.name"`
	} `json:"datasets"`
}

func (c *Client) ListDatasets(ctx context.Context) ([]string, error) {
	status, body, err := c.do(ctx, c.admin, http.MethodGet, "/$/datasets", "", "application/json", nil)
	if err != nil {
		return nil, storeErr("list_datasets", "", 0, nil, err)
	}
	if !ok2xx(status) {
		return nil, storeErr("list_datasets", "", status, body, nil)
	}
	var dl datasetList
	if err := json.Unmarshal(body, &dl); err != nil {
		return nil, storeErr("list_datasets", "", status, body, fmt.Errorf("decode: %w", err))
	}
	out := make([]string, 0, len(dl.Datasets))
	for _, d := range dl.Datasets {
		if n := strings.TrimLeft(d.Name, "/"); n != "" {
			out = append(out, n)
		}
	}
	return out, nil
}

// RunUpdate executes a SPARQL Update statement against the dataset.
func (c *Client) RunUpdate(ctx context.Context, name, stmt string) error {
	status, body, err := c.do(ctx, c.query, http.MethodPost, "/"+url.PathEscape(name)+"/update", "application/sparql-update", "", strings.NewReader(stmt))
	if err != nil {
		return storeErr("update", name, 0, nil, err)
	}
	if !ok2xx(status) {
		return storeErr("update", name, status, body, nil)
	}
	return nil
}

// ExportGraph returns the default graph serialized as Turtle. Missing or
// empty datasets yield EmptyGraph.
func (c *Client) ExportGraph(ctx context.Context, name string) (string, error) {
	form := url.Values{"query": {constructAll}}
	status, body, err := c.do(ctx, c.query, http.MethodPost, "/"+url.PathEscape(name)+"/query", "application/x-www-form-urlencoded", "text/turtle", strings.NewReader(form.Encode()))
	if err != nil {
		return "", storeErr("export", name, 0, nil, err)
	}
	if status == http.StatusNotFound || status == http.StatusMethodNotAllowed {
		return EmptyGraph, nil
	}
	if !ok2xx(status) {
		return "", storeErr("export", name, status, body, nil)
	}
	if strings.TrimSpace(string(body)) == "" {
		return EmptyGraph, nil
	}
	return string(body), nil
}

// LoadGraph writes a Turtle payload into the default graph.
func (c *Client) LoadGraph(ctx context.Context, name, ttl string, mode LoadMode) error {
	method := http.MethodPut
	if mode == Append {
		method = http.MethodPost
	}
	status, body, err := c.do(ctx, c.load, method, "/"+url.PathEscape(name)+"/data?default", turtleContentType, "", strings.NewReader(ttl))
	if err != nil {
		return storeErr("load_"+mode.String(), name, 0, nil, err)
	}
	if !ok2xx(status) {
		return storeErr("load_"+mode.String(), name, status, body, nil)
	}
	c.log.Debug("Loaded graph", "dataset", name, "mode", mode.String(), "bytes", len(ttl))
	return nil
}

// IsEmptyGraph reports whether an exported payload carries no statements
// worth loading: blank text or one of the designated empty markers.
func IsEmptyGraph(ttl string) bool {
	s := strings.TrimSpace(ttl)
	return s == "" || s == strings.TrimSpace(EmptyGraph) || s == "# Empty"
}

func (c *Client) do(ctx context.Context, timeout time.Duration, method, path, contentType, accept string, body io.Reader) (int, []byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return 0, nil, err
	}
	if c.user != "" || c.pass != "" {
		req.SetBasicAuth(c.user, c.pass)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := c.httpCli.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, raw, nil
}

func ok2xx(status int) bool { return status >= 200 && status < 300 }

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Sentinel for transport failures before any status was received.
var errTransport = errors.New("transport error")

func storeErr(op, dataset string, status int, body []byte, cause error) *StoreError {
	if cause == nil && status == 0 {
		cause = errTransport
	}
	return &StoreError{
		Op:      op,
		Dataset: dataset,
		Status:  status,
		Body:    httpx.Excerpt(body, 512),
		Err:     cause,
	}
}
