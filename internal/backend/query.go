package backend

import (
	"net/url"
	"strings"
)

// Prefer header values understood by the REST endpoint.
const (
	PreferRepresentation = "return=representation"
	PreferMinimal        = "return=minimal"
)

// MatchAny is the If-Match value that never fails the precondition.
const MatchAny = "*"

// RestPath returns the REST endpoint of a table.
func RestPath(table string) string {
	return "/rest/v1/" + table
}

// Query builds PostgREST filter parameters.
type Query url.Values

func NewQuery() Query {
	return Query{}
}

// Eq adds "column=eq.value".
func (q Query) Eq(column, value string) Query {
	url.Values(q).Add(column, "eq."+value)
	return q
}

// In adds "column=in.(v1,v2)". Values are double-quoted so commas and
// parentheses inside them survive.
func (q Query) In(column string, values []string) Query {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	url.Values(q).Add(column, "in.("+strings.Join(quoted, ",")+")")
	return q
}

// Order sets the sort order.
func (q Query) Order(column string, desc bool) Query {
	dir := "asc"
	if desc {
		dir = "desc"
	}
	url.Values(q).Set("order", column+"."+dir)
	return q
}

// Select restricts the returned columns.
func (q Query) Select(columns ...string) Query {
	url.Values(q).Set("select", strings.Join(columns, ","))
	return q
}

// Values returns the query as url.Values.
func (q Query) Values() url.Values {
	return url.Values(q)
}
