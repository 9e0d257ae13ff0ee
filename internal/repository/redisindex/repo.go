package redisindex

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/blendex/internal/db"
	"github.com/kailas-cloud/blendex/internal/domain"
	"github.com/kailas-cloud/blendex/internal/domain/facet"
	"github.com/kailas-cloud/blendex/internal/domain/query"
	"github.com/kailas-cloud/blendex/internal/domain/record"
)

// store is the consumer interface for the read path (ISP).
type store interface {
	db.Pinger
	SearchPage(ctx context.Context, q *db.PageQuery) (*db.SearchResult, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	FacetCounts(ctx context.Context, q *db.FacetQuery) ([]db.FacetBucket, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
}

// Repo is a search backend over a RediSearch index of record hashes.
type Repo struct {
	store     store
	schema    Schema
	facetSize int
	embedder  domain.Embedder
	knn       int
}

// Option configures a Repo.
type Option func(*Repo)

// WithFacetSize caps the number of values returned per facet field.
func WithFacetSize(n int) Option {
	return func(r *Repo) { r.facetSize = n }
}

// WithSemantic switches text queries to KNN over embeddings of the query text.
// k bounds the neighbour set, and with it the reported total.
func WithSemantic(e domain.Embedder, k int) Option {
	return func(r *Repo) {
		r.embedder = e
		r.knn = k
	}
}

// New creates a Redis search backend.
func New(s store, schema Schema, opts ...Option) *Repo {
	r := &Repo{store: s, schema: schema, facetSize: 30, knn: 100}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Ping checks the underlying store.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("redis %s: %w", r.schema.Index, err)
	}
	return nil
}

// Search runs one page of the query and counts facets over all matches.
func (r *Repo) Search(
	ctx context.Context, q query.Query, offset, limit int, params query.Params,
) (record.Collection, error) {
	if offset < 0 || limit < 0 {
		return record.Collection{}, fmt.Errorf("offset %d limit %d: %w", offset, limit, domain.ErrInvalidQuery)
	}

	match := db.Match{Text: q.Text(), Field: q.Field(), Filters: q.Filter()}

	g, gctx := errgroup.WithContext(ctx)

	var sr *db.SearchResult
	g.Go(func() error {
		var err error
		if r.embedder != nil && strings.TrimSpace(q.Text()) != "" {
			sr, err = r.searchKNN(gctx, q, offset, limit)
		} else {
			sr, err = r.searchPage(gctx, match, offset, limit, params)
		}
		return err
	})

	// KNN ranks by vector distance; facets count the filtered set.
	facetMatch := match
	if r.embedder != nil {
		facetMatch = db.Match{Filters: q.Filter()}
	}
	counts := make([][]facet.Count, len(r.schema.FacetFields))
	for i, field := range r.schema.FacetFields {
		g.Go(func() error {
			buckets, err := r.store.FacetCounts(gctx, &db.FacetQuery{
				IndexName: r.schema.Index,
				Match:     facetMatch,
				Field:     field,
				Limit:     r.facetSize,
			})
			if err != nil {
				return fmt.Errorf("facet %s: %w", field, err)
			}
			counts[i] = toCounts(buckets)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return record.Collection{}, err
	}

	out := record.Collection{Total: sr.Total, Records: r.toRecords(sr)}
	if len(r.schema.FacetFields) > 0 {
		out.Facets = make(facet.Set, len(r.schema.FacetFields))
		for i, field := range r.schema.FacetFields {
			if len(counts[i]) > 0 {
				out.Facets[field] = counts[i]
			}
		}
	}
	return out, nil
}

func (r *Repo) searchPage(
	ctx context.Context, match db.Match, offset, limit int, params query.Params,
) (*db.SearchResult, error) {
	order := params.SortOrder()
	if !order.IsRelevance() && !r.schema.sortable(order.Field) {
		return nil, fmt.Errorf("sort field %q is not sortable: %w", order.Field, domain.ErrInvalidQuery)
	}

	sr, err := r.store.SearchPage(ctx, &db.PageQuery{
		IndexName: r.schema.Index,
		Match:     match,
		Offset:    offset,
		Limit:     limit,
		SortBy:    order.Field,
		SortDesc:  order.Desc,
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", r.schema.Index, err)
	}
	return sr, nil
}

func (r *Repo) searchKNN(ctx context.Context, q query.Query, offset, limit int) (*db.SearchResult, error) {
	emb, err := r.embedder.Embed(ctx, q.Text())
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// A one-record page still reports the neighbour count.
	pageLimit := limit
	if pageLimit == 0 {
		pageLimit = 1
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName: r.schema.Index,
		Filters:   q.Filter(),
		Vector:    emb.Embedding,
		K:         r.knn,
		Offset:    offset,
		Limit:     pageLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("knn %s: %w", r.schema.Index, err)
	}
	if limit == 0 {
		sr.Entries = nil
	}
	return sr, nil
}

// Retrieve loads one record hash by id.
func (r *Repo) Retrieve(ctx context.Context, id string, _ query.Params) (record.Collection, error) {
	m, err := r.store.HGetAll(ctx, r.schema.key(id))
	if err != nil {
		return record.Collection{}, fmt.Errorf("retrieve %s: %w", id, err)
	}
	if len(m) == 0 {
		return record.Collection{}, fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
	}
	rec := parseHashFields(id, 0, m)
	return record.Collection{Records: []record.Record{rec}, Total: 1}, nil
}

// RetrieveBatch loads several record hashes in one round-trip, in request order.
// Missing ids are skipped.
func (r *Repo) RetrieveBatch(ctx context.Context, ids []string, _ query.Params) (record.Collection, error) {
	if len(ids) == 0 {
		return record.Collection{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.schema.key(id)
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return record.Collection{}, fmt.Errorf("retrieve batch: %w", err)
	}
	if len(maps) != len(ids) {
		return record.Collection{}, errors.New("retrieve batch: result count mismatch")
	}

	recs := make([]record.Record, 0, len(ids))
	for i, m := range maps {
		if len(m) == 0 {
			continue
		}
		recs = append(recs, parseHashFields(ids[i], 0, m))
	}
	return record.Collection{Records: recs, Total: len(recs)}, nil
}

func (r *Repo) toRecords(sr *db.SearchResult) []record.Record {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}
	recs := make([]record.Record, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		id := strings.TrimPrefix(e.Key, r.schema.Prefix)
		recs = append(recs, parseHashFields(id, e.Score, e.Fields))
	}
	return recs
}

func toCounts(buckets []db.FacetBucket) []facet.Count {
	if len(buckets) == 0 {
		return nil
	}
	out := make([]facet.Count, len(buckets))
	for i, b := range buckets {
		out[i] = facet.Count{Value: b.Value, Count: b.Count}
	}
	return out
}
