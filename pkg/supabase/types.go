package supabase

import (
	"fmt"
	"net/url"
	"strings"
)

// Order direction keywords understood by the REST layer
const (
	Ascending  = "asc"
	Descending = "desc"
)

// Filter is a single column comparison applied to a table read or update.
type Filter struct {
	Column   string
	Operator string // eq, lte, gte, in, ...
	Value    string
}

// Eq builds an equality filter
func Eq(column, value string) Filter {
	return Filter{Column: column, Operator: "eq", Value: value}
}

// Lte builds a less-than-or-equal filter
func Lte(column, value string) Filter {
	return Filter{Column: column, Operator: "lte", Value: value}
}

// In builds a membership filter over a value list
func In(column string, values []string) Filter {
	return Filter{Column: column, Operator: "in", Value: "(" + strings.Join(values, ",") + ")"}
}

// OrderBy is one ordering term; terms are applied in sequence.
type OrderBy struct {
	Column    string
	Direction string
}

// Query describes a table read: projection, filters, ordering, row limit.
// A zero Limit means no limit.
type Query struct {
	Select  string
	Filters []Filter
	Order   []OrderBy
	Limit   int
}

// Encode renders the query as REST query parameters.
func (q Query) Encode() string {
	params := url.Values{}

	sel := q.Select
	if sel == "" {
		sel = "*"
	}
	params.Set("select", sel)

	for _, f := range q.Filters {
		params.Add(f.Column, fmt.Sprintf("%s.%s", f.Operator, f.Value))
	}

	if len(q.Order) > 0 {
		terms := make([]string, 0, len(q.Order))
		for _, o := range q.Order {
			dir := o.Direction
			if dir == "" {
				dir = Ascending
			}
			terms = append(terms, fmt.Sprintf("%s.%s", o.Column, dir))
		}
		params.Set("order", strings.Join(terms, ","))
	}

	if q.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", q.Limit))
	}

	return params.Encode()
}

// encodeFilters renders only the filter terms, for writes that carry no
// projection or ordering.
func encodeFilters(filters []Filter) string {
	params := url.Values{}
	for _, f := range filters {
		params.Add(f.Column, fmt.Sprintf("%s.%s", f.Operator, f.Value))
	}
	return params.Encode()
}
