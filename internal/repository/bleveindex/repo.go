package bleveindex

import (
	"context"
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/kailas-cloud/blendex/internal/db"
	"github.com/kailas-cloud/blendex/internal/domain"
	"github.com/kailas-cloud/blendex/internal/domain/facet"
	"github.com/kailas-cloud/blendex/internal/domain/query"
	"github.com/kailas-cloud/blendex/internal/domain/record"
)

// Search runs one page of the query with term facets over all matches.
func (i *Index) Search(
	ctx context.Context, q query.Query, offset, limit int, params query.Params,
) (record.Collection, error) {
	if offset < 0 || limit < 0 {
		return record.Collection{}, fmt.Errorf("offset %d limit %d: %w", offset, limit, domain.ErrInvalidQuery)
	}

	bqq, err := i.buildQuery(q)
	if err != nil {
		return record.Collection{}, err
	}

	req := bleve.NewSearchRequestOptions(bqq, limit, offset, false)
	req.Fields = []string{"*"}

	order := params.SortOrder()
	if !order.IsRelevance() {
		if !i.schema.sortable(order.Field) {
			return record.Collection{}, fmt.Errorf("sort field %q is not sortable: %w", order.Field, domain.ErrInvalidQuery)
		}
		key := order.Field
		if order.Desc {
			key = "-" + key
		}
		req.SortBy([]string{key, "-_score", "_id"})
	}

	for _, f := range i.schema.FacetFields {
		req.AddFacet(f, bleve.NewFacetRequest(f, i.facetSize))
	}

	res, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return record.Collection{}, fmt.Errorf("bleve search: %w", err)
	}

	out := record.Collection{Total: int(res.Total)} //nolint:gosec // hit counts fit in int
	if len(res.Hits) > 0 {
		out.Records = make([]record.Record, 0, len(res.Hits))
		for _, hit := range res.Hits {
			out.Records = append(out.Records, i.decodeHit(hit, hit.Score))
		}
	}
	out.Facets = toFacets(res.Facets)
	return out, nil
}

// Retrieve loads one record by id.
func (i *Index) Retrieve(ctx context.Context, id string, params query.Params) (record.Collection, error) {
	res, err := i.RetrieveBatch(ctx, []string{id}, params)
	if err != nil {
		return record.Collection{}, err
	}
	if res.Len() == 0 {
		return record.Collection{}, fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
	}
	return res, nil
}

// RetrieveBatch loads several records with one doc-id query, in request order.
// Missing ids are skipped.
func (i *Index) RetrieveBatch(ctx context.Context, ids []string, _ query.Params) (record.Collection, error) {
	if len(ids) == 0 {
		return record.Collection{}, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDocIDQuery(ids), len(ids), 0, false)
	req.Fields = []string{"*"}

	res, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return record.Collection{}, fmt.Errorf("bleve retrieve: %w", err)
	}

	byID := make(map[string]*search.DocumentMatch, len(res.Hits))
	for _, hit := range res.Hits {
		byID[hit.ID] = hit
	}

	recs := make([]record.Record, 0, len(byID))
	for _, id := range ids {
		hit, ok := byID[id]
		if !ok {
			continue
		}
		delete(byID, id)
		recs = append(recs, i.decodeHit(hit, 0))
	}
	return record.Collection{Records: recs, Total: len(recs)}, nil
}

// Write indexes records in one batch, replacing documents with the same id.
func (i *Index) Write(_ context.Context, recs []record.Record) error {
	if len(recs) == 0 {
		return nil
	}

	batch := i.index.NewBatch()
	for j := range recs {
		if err := batch.Index(recs[j].ID(), i.encode(recs[j])); err != nil {
			return fmt.Errorf("index record %s: %w", recs[j].ID(), err)
		}
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("execute batch: %w", err)
	}
	return nil
}

// encode builds the Bleve document. Numeric fields that do not parse are dropped.
func (i *Index) encode(rec record.Record) map[string]any {
	doc := make(map[string]any, 1+len(rec.Fields()))
	for k, vs := range rec.Fields() {
		if k == db.TitleField || len(vs) == 0 {
			continue
		}
		if !i.schema.numeric(k) {
			doc[k] = vs
			continue
		}
		nums := make([]float64, 0, len(vs))
		for _, v := range vs {
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				nums = append(nums, n)
			}
		}
		if len(nums) > 0 {
			doc[k] = nums
		}
	}
	doc[db.TitleField] = rec.Title()
	return doc
}

func (i *Index) decodeHit(hit *search.DocumentMatch, score float64) record.Record {
	var title string
	fields := make(map[string][]string, len(hit.Fields))
	for k, v := range hit.Fields {
		vals := fieldValues(v)
		if k == db.TitleField {
			if len(vals) > 0 {
				title = vals[0]
			}
			continue
		}
		if len(vals) > 0 {
			fields[k] = vals
		}
	}
	return record.Reconstruct(hit.ID, title, score, fields, record.SourceNone)
}

// fieldValues flattens a stored field: a scalar for one value, a slice for several.
func fieldValues(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case float64:
		return []string{strconv.FormatFloat(t, 'f', -1, 64)}
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, fieldValues(e)...)
		}
		return out
	default:
		return nil
	}
}

func toFacets(res search.FacetResults) facet.Set {
	if len(res) == 0 {
		return nil
	}
	out := make(facet.Set, len(res))
	for field, fr := range res {
		if fr == nil {
			continue
		}
		terms := fr.Terms.Terms()
		if len(terms) == 0 {
			continue
		}
		counts := make([]facet.Count, len(terms))
		for j, tf := range terms {
			counts[j] = facet.Count{Value: tf.Term, Count: tf.Count}
		}
		out[field] = counts
	}
	return out
}
