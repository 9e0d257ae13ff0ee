package blend

import (
	"fmt"

	"github.com/kailas-cloud/blendex/internal/domain/facet"
	"github.com/kailas-cloud/blendex/internal/domain/query"
	"github.com/kailas-cloud/blendex/internal/domain/search/filter"
)

// Identity passes queries through unchanged.
type Identity struct{}

// Translate returns q.
func (Identity) Translate(q query.Query) (query.Query, error) { return q, nil }

// MappingTranslator rewrites field names and filter values into the secondary
// vocabulary, inverting the facet mapping table.
type MappingTranslator struct {
	table  facet.Table
	fields map[string]string
}

// NewMappingTranslator creates a translator. fields renames the search field
// (primary name -> secondary name).
func NewMappingTranslator(table facet.Table, fields map[string]string) *MappingTranslator {
	return &MappingTranslator{table: table, fields: fields}
}

// Translate rewrites the search field and every filter condition.
func (t *MappingTranslator) Translate(q query.Query) (query.Query, error) {
	if f, ok := t.fields[q.Field()]; ok && q.Field() != "" {
		q = q.WithField(f)
	}
	if !q.HasFilter() {
		return q, nil
	}

	expr := q.Filter()
	must, err := t.conditions(expr.Must())
	if err != nil {
		return query.Query{}, err
	}
	should, err := t.conditions(expr.Should())
	if err != nil {
		return query.Query{}, err
	}
	mustNot, err := t.conditions(expr.MustNot())
	if err != nil {
		return query.Query{}, err
	}

	translated, err := filter.NewExpression(must, should, mustNot)
	if err != nil {
		return query.Query{}, fmt.Errorf("translate filter: %w", err)
	}
	return q.WithFilter(translated), nil
}

func (t *MappingTranslator) conditions(in []filter.Condition) ([]filter.Condition, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]filter.Condition, 0, len(in))
	for _, c := range in {
		rule, ok := t.table.ByPrimary(c.Key())
		if !ok {
			out = append(out, c)
			continue
		}
		var (
			nc  filter.Condition
			err error
		)
		if c.IsRange() {
			nc, err = filter.NewRange(rule.Secondary, *c.Range())
		} else {
			value, _ := rule.UnmapValue(c.Match())
			nc, err = filter.NewMatch(rule.Secondary, value)
		}
		if err != nil {
			return nil, fmt.Errorf("translate condition %q: %w", c.Key(), err)
		}
		out = append(out, nc)
	}
	return out, nil
}
