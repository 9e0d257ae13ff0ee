package bleveindex

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	bq "github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/blendex/internal/domain"
	"github.com/kailas-cloud/blendex/internal/domain/query"
	"github.com/kailas-cloud/blendex/internal/domain/search/filter"
)

// buildQuery renders the text and filter expression as one Bleve query.
// Empty text matches every document.
func (i *Index) buildQuery(q query.Query) (bq.Query, error) {
	var text bq.Query
	if q.Text() == "" {
		text = bleve.NewMatchAllQuery()
	} else {
		mq := bleve.NewMatchQuery(q.Text())
		if q.Field() != "" {
			mq.SetField(q.Field())
		}
		text = mq
	}

	f := q.Filter()
	if f.IsEmpty() {
		return text, nil
	}

	b := bleve.NewBooleanQuery()
	b.AddMust(text)
	for _, c := range f.Must() {
		cq, err := i.buildCondition(c)
		if err != nil {
			return nil, err
		}
		b.AddMust(cq)
	}
	if len(f.Should()) > 0 {
		should := make([]bq.Query, 0, len(f.Should()))
		for _, c := range f.Should() {
			cq, err := i.buildCondition(c)
			if err != nil {
				return nil, err
			}
			should = append(should, cq)
		}
		b.AddMust(bleve.NewDisjunctionQuery(should...))
	}
	for _, c := range f.MustNot() {
		cq, err := i.buildCondition(c)
		if err != nil {
			return nil, err
		}
		b.AddMustNot(cq)
	}
	return b, nil
}

func (i *Index) buildCondition(c filter.Condition) (bq.Query, error) {
	if c.IsMatch() {
		tq := bleve.NewTermQuery(c.Match())
		tq.SetField(c.Key())
		return tq, nil
	}
	if c.IsRange() {
		if !i.schema.numeric(c.Key()) {
			return nil, fmt.Errorf("range filter on non-numeric field %q: %w", c.Key(), domain.ErrInvalidQuery)
		}
		return buildRange(c.Key(), c.Range()), nil
	}
	return nil, fmt.Errorf("empty filter condition on %q: %w", c.Key(), domain.ErrInvalidQuery)
}

func buildRange(field string, r *filter.Range) bq.Query {
	lo, loIncl := r.GTE(), true
	if lo == nil {
		lo, loIncl = r.GT(), false
	}
	hi, hiIncl := r.LTE(), true
	if hi == nil {
		hi, hiIncl = r.LT(), false
	}
	nq := bleve.NewNumericRangeInclusiveQuery(lo, hi, &loIncl, &hiIncl)
	nq.SetField(field)
	return nq
}
