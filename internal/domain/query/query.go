package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/blendex/internal/domain/search/filter"
)

// MaxTextLength bounds the search text.
const MaxTextLength = 1024

// SecondaryPrefix routes a parameter to the secondary backend.
const SecondaryPrefix = "secondary."

// Query is a backend-neutral search request.
type Query struct {
	text   string
	field  string
	filter filter.Expression
}

// New validates and creates a Query. An empty field searches all fields.
func New(text, field string, f filter.Expression) (Query, error) {
	if len(text) > MaxTextLength {
		return Query{}, fmt.Errorf("query text too long (max %d)", MaxTextLength)
	}
	return Query{text: strings.TrimSpace(text), field: field, filter: f}, nil
}

// Text returns the search text.
func (q Query) Text() string { return q.text }

// Field returns the search field; empty means all fields.
func (q Query) Field() string { return q.field }

// Filter returns the filter expression.
func (q Query) Filter() filter.Expression { return q.filter }

// HasFilter reports whether the query carries any filter condition.
func (q Query) HasFilter() bool { return !q.filter.IsEmpty() }

// WithField returns a copy with a different search field.
func (q Query) WithField(field string) Query {
	q.field = field
	return q
}

// WithFilter returns a copy with a different filter expression.
func (q Query) WithFilter(f filter.Expression) Query {
	q.filter = f
	return q
}

// Params are backend parameters keyed by name.
type Params map[string][]string

// Get returns the first value of key.
func (p Params) Get(key string) string {
	if v := p[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Sort returns the requested sort order, if any.
func (p Params) Sort() string { return p.Get("sort") }

// SortOrder is a parsed sort parameter.
type SortOrder struct {
	Field string
	Desc  bool
}

// IsRelevance reports whether backend ranking should be kept.
func (o SortOrder) IsRelevance() bool { return o.Field == "" }

// SortOrder parses the sort parameter: "year" ascending, "-year" or
// "year desc" descending; "" and "relevance" keep backend ranking.
func (p Params) SortOrder() SortOrder {
	raw := strings.TrimSpace(p.Sort())
	if raw == "" || raw == "relevance" {
		return SortOrder{}
	}
	if rest, ok := strings.CutPrefix(raw, "-"); ok {
		return SortOrder{Field: strings.TrimSpace(rest), Desc: true}
	}
	field, dir, _ := strings.Cut(raw, " ")
	return SortOrder{Field: field, Desc: strings.EqualFold(strings.TrimSpace(dir), "desc")}
}

// Split separates primary and secondary parameters.
// Keys with SecondaryPrefix go to the secondary bag with the prefix stripped.
func (p Params) Split() (primary, secondary Params) {
	primary, secondary = Params{}, Params{}
	for k, v := range p {
		if rest, ok := strings.CutPrefix(k, SecondaryPrefix); ok {
			if rest != "" {
				secondary[rest] = v
			}
			continue
		}
		primary[k] = v
	}
	return primary, secondary
}

// Keys returns parameter names in lexical order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
