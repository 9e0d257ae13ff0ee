package blendex

import (
	"context"
	"net/url"
	"strconv"
)

// SearchBuilder is a fluent builder for blended search queries.
type SearchBuilder struct {
	client *Client

	query  string
	field  string
	offset int
	limit  *int

	must    []Filter
	mustNot []Filter
	should  []Filter
	ranges  []Range
	params  url.Values
}

// Query sets the search text. Empty matches everything.
func (b *SearchBuilder) Query(q string) *SearchBuilder {
	b.query = q
	return b
}

// Field restricts the text match to one field.
func (b *SearchBuilder) Field(name string) *SearchBuilder {
	b.field = name
	return b
}

// Offset sets the index of the first record in the blended result.
func (b *SearchBuilder) Offset(n int) *SearchBuilder {
	b.offset = n
	return b
}

// Limit sets the window size. Zero returns only totals and facets.
// Unset uses the server default.
func (b *SearchBuilder) Limit(n int) *SearchBuilder {
	b.limit = &n
	return b
}

// Where adds a tag filter every record must match.
func (b *SearchBuilder) Where(key, value string) *SearchBuilder {
	b.must = append(b.must, Filter{Key: key, Value: value})
	return b
}

// Exclude adds a tag filter no record may match.
func (b *SearchBuilder) Exclude(key, value string) *SearchBuilder {
	b.mustNot = append(b.mustNot, Filter{Key: key, Value: value})
	return b
}

// Any adds a tag filter of which at least one must match.
func (b *SearchBuilder) Any(key, value string) *SearchBuilder {
	b.should = append(b.should, Filter{Key: key, Value: value})
	return b
}

// Range adds numeric bounds on a field.
func (b *SearchBuilder) Range(r Range) *SearchBuilder {
	b.ranges = append(b.ranges, r)
	return b
}

// Between is Range with inclusive bounds.
func (b *SearchBuilder) Between(key string, lo, hi float64) *SearchBuilder {
	return b.Range(Range{Key: key, GTE: &lo, LTE: &hi})
}

// Param adds a backend parameter. Prefix the name with "secondary." to
// route it to the secondary backend only.
func (b *SearchBuilder) Param(name, value string) *SearchBuilder {
	b.params.Add(name, value)
	return b
}

// Params adds several backend parameters.
func (b *SearchBuilder) Params(v url.Values) *SearchBuilder {
	for k, vs := range v {
		for _, s := range vs {
			b.params.Add(k, s)
		}
	}
	return b
}

// Values returns the encoded query parameters.
func (b *SearchBuilder) Values() url.Values {
	v := url.Values{}
	for k, vs := range b.params {
		v[k] = append([]string(nil), vs...)
	}
	if b.query != "" {
		v.Set("q", b.query)
	}
	if b.field != "" {
		v.Set("field", b.field)
	}
	if b.offset > 0 {
		v.Set("offset", strconv.Itoa(b.offset))
	}
	if b.limit != nil {
		v.Set("limit", strconv.Itoa(*b.limit))
	}
	for _, f := range b.must {
		v.Add("filter", f.Key+":"+f.Value)
	}
	for _, f := range b.mustNot {
		v.Add("exclude", f.Key+":"+f.Value)
	}
	for _, f := range b.should {
		v.Add("any", f.Key+":"+f.Value)
	}
	for _, r := range b.ranges {
		addBound(v, r.Key, "gt", r.GT)
		addBound(v, r.Key, "gte", r.GTE)
		addBound(v, r.Key, "lt", r.LT)
		addBound(v, r.Key, "lte", r.LTE)
	}
	return v
}

// Do executes the search.
func (b *SearchBuilder) Do(ctx context.Context) (*SearchResult, error) {
	return b.client.search(ctx, b.Values())
}

func addBound(v url.Values, key, op string, n *float64) {
	if n == nil {
		return
	}
	v.Add("range", key+":"+op+":"+strconv.FormatFloat(*n, 'f', -1, 64))
}
