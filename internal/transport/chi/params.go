package chi

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/blendex/internal/domain/query"
	"github.com/kailas-cloud/blendex/internal/domain/search/filter"
)

// SearchParams are the query parameters of GET /search.
// Any other parameter is handed to the backends; a "secondary." prefix routes it
// to the secondary backend.
type SearchParams struct {
	Q      *string
	Field  *string
	Offset *int
	Limit  *int

	// Filter, Exclude and Any hold "key:value" tag matches for must, must_not and should.
	Filter  *[]string
	Exclude *[]string
	Any     *[]string
	// Range holds numeric bounds as "key:op:number", op one of gt, gte, lt, lte.
	Range *[]string
}

var reservedParams = map[string]struct{}{
	"q": {}, "field": {}, "offset": {}, "limit": {},
	"filter": {}, "exclude": {}, "any": {}, "range": {},
}

func bindSearchParams(r *http.Request) (SearchParams, error) {
	var p SearchParams
	qv := r.URL.Query()
	binds := []struct {
		name string
		dest any
	}{
		{"q", &p.Q},
		{"field", &p.Field},
		{"offset", &p.Offset},
		{"limit", &p.Limit},
		{"filter", &p.Filter},
		{"exclude", &p.Exclude},
		{"any", &p.Any},
		{"range", &p.Range},
	}
	for _, b := range binds {
		if err := runtime.BindQueryParameter("form", true, false, b.name, qv, b.dest); err != nil {
			return SearchParams{}, fmt.Errorf("invalid format for parameter %s: %w", b.name, err)
		}
	}
	return p, nil
}

// backendParams collects the non-reserved query parameters.
func backendParams(v url.Values) query.Params {
	out := make(query.Params)
	for k, vs := range v {
		if _, ok := reservedParams[k]; ok {
			continue
		}
		out[k] = vs
	}
	return out
}

func (p SearchParams) toQuery() (query.Query, error) {
	must, err := matchConditions(p.Filter)
	if err != nil {
		return query.Query{}, err
	}
	ranges, err := rangeConditions(p.Range)
	if err != nil {
		return query.Query{}, err
	}
	must = append(must, ranges...)
	mustNot, err := matchConditions(p.Exclude)
	if err != nil {
		return query.Query{}, err
	}
	should, err := matchConditions(p.Any)
	if err != nil {
		return query.Query{}, err
	}

	var expr filter.Expression
	if len(must)+len(should)+len(mustNot) > 0 {
		expr, err = filter.NewExpression(must, should, mustNot)
		if err != nil {
			return query.Query{}, fmt.Errorf("filter: %w", err)
		}
	}

	q, err := query.New(deref(p.Q), deref(p.Field), expr)
	if err != nil {
		return query.Query{}, fmt.Errorf("query: %w", err)
	}
	return q, nil
}

func matchConditions(raw *[]string) ([]filter.Condition, error) {
	if raw == nil {
		return nil, nil
	}
	out := make([]filter.Condition, 0, len(*raw))
	for _, s := range *raw {
		key, value, ok := strings.Cut(s, ":")
		if !ok {
			return nil, fmt.Errorf("filter %q must be key:value", s)
		}
		c, err := filter.NewMatch(key, value)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", s, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// rangeConditions merges all bounds of one key into a single range condition,
// keeping first-seen key order.
func rangeConditions(raw *[]string) ([]filter.Condition, error) {
	if raw == nil {
		return nil, nil
	}
	type bounds struct{ gt, gte, lt, lte *float64 }
	var order []string
	byKey := make(map[string]*bounds)

	for _, s := range *raw {
		parts := strings.SplitN(s, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("range %q must be key:op:number", s)
		}
		n, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("range %q: invalid number", s)
		}
		b, ok := byKey[parts[0]]
		if !ok {
			b = &bounds{}
			byKey[parts[0]] = b
			order = append(order, parts[0])
		}
		switch parts[1] {
		case "gt":
			b.gt = &n
		case "gte":
			b.gte = &n
		case "lt":
			b.lt = &n
		case "lte":
			b.lte = &n
		default:
			return nil, fmt.Errorf("range %q: unknown operator %q", s, parts[1])
		}
	}

	out := make([]filter.Condition, 0, len(order))
	for _, key := range order {
		b := byKey[key]
		r, err := filter.NewRangeFilter(b.gt, b.gte, b.lt, b.lte)
		if err != nil {
			return nil, fmt.Errorf("range %s: %w", key, err)
		}
		c, err := filter.NewRange(key, r)
		if err != nil {
			return nil, fmt.Errorf("range %s: %w", key, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
