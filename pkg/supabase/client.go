package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/suenolabs/sueno-api/pkg/apperr"
	"github.com/suenolabs/sueno-api/pkg/observability"
)

// Client talks to a Supabase project's PostgREST endpoint. All table
// access in the application goes through it; there is no local database.
type Client struct {
	baseURL string
	key     string
	http    *http.Client
	metrics *observability.Metrics
}

// NewClient creates a client for the given project URL and service key.
// metrics may be nil.
func NewClient(baseURL, key string, timeout time.Duration, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		http:    &http.Client{Timeout: timeout},
		metrics: metrics,
	}
}

// Ping verifies the REST endpoint is reachable and the key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rest/v1/", nil)
	if err != nil {
		return fmt.Errorf("building ping request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote store unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("remote store unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")
}

// From starts a query against a table.
func (c *Client) From(table string) *Query {
	return &Query{client: c, table: table}
}

// Query builds a single PostgREST request. Builder methods return the
// receiver so calls chain; the request fires on Do or Count.
type Query struct {
	client  *Client
	table   string
	method  string
	columns string
	filters []filter
	order   string
	limit   int
	body    interface{}
	prefer  []string
}

type filter struct {
	column string
	op     string
	value  string
}

// Select reads rows. columns is a PostgREST column list, "*" for all.
func (q *Query) Select(columns string) *Query {
	q.method = http.MethodGet
	q.columns = columns
	return q
}

// Insert writes one or more rows and asks for the created rows back.
func (q *Query) Insert(body interface{}) *Query {
	q.method = http.MethodPost
	q.body = body
	q.prefer = append(q.prefer, "return=representation")
	return q
}

// Update patches the rows matched by the filters and returns them.
func (q *Query) Update(body interface{}) *Query {
	q.method = http.MethodPatch
	q.body = body
	q.prefer = append(q.prefer, "return=representation")
	return q
}

// Delete removes the rows matched by the filters.
func (q *Query) Delete() *Query {
	q.method = http.MethodDelete
	q.prefer = append(q.prefer, "return=representation")
	return q
}

// Eq filters on column = value.
func (q *Query) Eq(column string, value interface{}) *Query {
	q.filters = append(q.filters, filter{column, "eq", fmt.Sprintf("%v", value)})
	return q
}

// Gte filters on column >= value.
func (q *Query) Gte(column string, value interface{}) *Query {
	q.filters = append(q.filters, filter{column, "gte", fmt.Sprintf("%v", value)})
	return q
}

// Lte filters on column <= value.
func (q *Query) Lte(column string, value interface{}) *Query {
	q.filters = append(q.filters, filter{column, "lte", fmt.Sprintf("%v", value)})
	return q
}

// Order sorts results by column. descending reverses the default order.
func (q *Query) Order(column string, descending bool) *Query {
	q.order = column
	if descending {
		q.order += ".desc"
	}
	return q
}

// Limit caps the number of returned rows.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

func (q *Query) url() (string, error) {
	u, err := url.Parse(q.client.baseURL + "/rest/v1/" + q.table)
	if err != nil {
		return "", fmt.Errorf("building table URL: %w", err)
	}

	params := url.Values{}
	if q.columns != "" {
		params.Set("select", q.columns)
	}
	for _, f := range q.filters {
		params.Add(f.column, f.op+"."+f.value)
	}
	if q.order != "" {
		params.Set("order", q.order)
	}
	if q.limit > 0 {
		params.Set("limit", strconv.Itoa(q.limit))
	}

	u.RawQuery = params.Encode()
	return u.String(), nil
}

// Do executes the query and decodes the JSON response into dest. Pass nil
// to discard the response body. PostgREST always returns an array for
// reads and representation responses, so dest is normally a *[]T.
func (q *Query) Do(ctx context.Context, dest interface{}) error {
	if q.method == "" {
		return apperr.New(apperr.Upstream, "query has no operation")
	}

	reqURL, err := q.url()
	if err != nil {
		return apperr.Wrap(apperr.Upstream, "remote store request failed", err)
	}

	var bodyReader io.Reader
	if q.body != nil {
		encoded, err := json.Marshal(q.body)
		if err != nil {
			return apperr.Wrap(apperr.Upstream, "remote store request failed", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, q.method, reqURL, bodyReader)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, "remote store request failed", err)
	}
	q.client.setHeaders(req)
	for _, p := range q.prefer {
		req.Header.Add("Prefer", p)
	}

	start := time.Now()
	resp, err := q.client.http.Do(req)
	q.observe(start, resp, err)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, "remote store unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return q.statusError(resp)
	}

	if dest == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return apperr.Wrap(apperr.Upstream, "remote store returned malformed data", err)
	}
	return nil
}

func (q *Query) statusError(resp *http.Response) error {
	// Read a bounded slice of the body for the wrapped cause; the
	// client-facing message never includes it.
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	cause := fmt.Errorf("table %s: status %d: %s", q.table, resp.StatusCode, string(detail))

	switch resp.StatusCode {
	case http.StatusConflict:
		return apperr.Wrap(apperr.Conflict, "resource already exists", cause)
	case http.StatusNotFound:
		return apperr.Wrap(apperr.NotFound, "resource not found", cause)
	default:
		return apperr.Wrap(apperr.Upstream, "remote store request failed", cause)
	}
}

func (q *Query) observe(start time.Time, resp *http.Response, err error) {
	m := q.client.metrics
	if m == nil {
		return
	}
	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	m.StoreRequestsTotal.WithLabelValues(q.table, q.method, status).Inc()
	m.StoreRequestDuration.WithLabelValues(q.table, q.method).Observe(time.Since(start).Seconds())
}
