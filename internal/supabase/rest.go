package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// QueryBuilder builds one PostgREST request. Obtain it with Client.From.
type QueryBuilder struct {
	client *Client
	table  string
	method string
	query  url.Values
	prefer []string
	body   any
}

// From starts a query on table.
func (c *Client) From(table string) *QueryBuilder {
	return &QueryBuilder{
		client: c,
		table:  table,
		method: http.MethodGet,
		query:  url.Values{},
	}
}

// Select sets the returned columns. With count the exact row count of the
// filtered query is returned by Execute.
func (q *QueryBuilder) Select(columns string, count bool) *QueryBuilder {
	if columns == "" {
		columns = "*"
	}
	q.query.Set("select", columns)
	if count {
		q.prefer = append(q.prefer, "count=exact")
	}
	return q
}

// Eq filters rows where column equals value.
func (q *QueryBuilder) Eq(column, value string) *QueryBuilder {
	q.query.Add(column, "eq."+value)
	return q
}

// ILike filters rows where column matches pattern, case-insensitively.
// Use % as the wildcard.
func (q *QueryBuilder) ILike(column, pattern string) *QueryBuilder {
	q.query.Add(column, "ilike."+pattern)
	return q
}

// Order sorts by column.
func (q *QueryBuilder) Order(column string, ascending bool) *QueryBuilder {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.query.Set("order", column+"."+dir)
	return q
}

// Range limits the result to rows from..to, both inclusive and zero based.
func (q *QueryBuilder) Range(from, to int) *QueryBuilder {
	q.query.Set("offset", strconv.Itoa(from))
	q.query.Set("limit", strconv.Itoa(to-from+1))
	return q
}

// Update turns the query into a PATCH of the filtered rows, returning them.
func (q *QueryBuilder) Update(values any) *QueryBuilder {
	q.method = http.MethodPatch
	q.body = values
	q.prefer = append(q.prefer, "return=representation")
	return q
}

// Execute runs the query and decodes the rows into dest (a pointer to a slice).
// It returns the exact count when Select asked for one, otherwise -1.
func (q *QueryBuilder) Execute(ctx context.Context, dest any) (int64, error) {
	token := ""
	if session, err := q.client.Auth.GetSession(ctx); err == nil && session != nil {
		token = session.AccessToken
	}

	header := http.Header{}
	if len(q.prefer) > 0 {
		header.Set("Prefer", strings.Join(q.prefer, ","))
	}

	respHeader, err := q.client.doRequest(ctx, request{
		method: q.method,
		path:   "/rest/v1/" + url.PathEscape(q.table),
		query:  q.query,
		header: header,
		body:   q.body,
		token:  token,
	}, dest)
	if err != nil {
		return 0, err
	}

	return parseContentRange(respHeader.Get("Content-Range")), nil
}

// parseContentRange reads the total from "0-9/42" or "*/0". Unknown is -1.
func parseContentRange(value string) int64 {
	i := strings.LastIndexByte(value, '/')
	if i < 0 {
		return -1
	}
	total, err := strconv.ParseInt(value[i+1:], 10, 64)
	if err != nil {
		return -1
	}
	return total
}

func (q *QueryBuilder) String() string {
	return fmt.Sprintf("%s /rest/v1/%s?%s", q.method, q.table, q.query.Encode())
}
