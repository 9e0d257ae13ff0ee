package reccache

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kailas-cloud/blendex/internal/domain/query"
	"github.com/kailas-cloud/blendex/internal/domain/record"
	"github.com/kailas-cloud/blendex/internal/metrics"
	"github.com/kailas-cloud/blendex/internal/usecase/blend"
)

// DefaultSize is the number of records kept when no size is configured.
const DefaultSize = 1000

// Backend caches Retrieve results of an inner backend in an LRU.
// Search is passed through; missing records are never cached.
type Backend struct {
	inner blend.Backend
	cache *lru.Cache[string, record.Record]
	role  string
}

// BatchBackend is Backend for inner backends with batch retrieval.
type BatchBackend struct {
	*Backend
	batch blend.BatchRetriever
}

// New wraps inner with a retrieve cache of size records. The result implements
// blend.BatchRetriever only when inner does.
func New(inner blend.Backend, size int, role string) (blend.Backend, error) {
	if size <= 0 {
		size = DefaultSize
	}
	cache, err := lru.New[string, record.Record](size)
	if err != nil {
		return nil, fmt.Errorf("create record cache: %w", err)
	}
	b := &Backend{inner: inner, cache: cache, role: role}
	if br, ok := inner.(blend.BatchRetriever); ok {
		return &BatchBackend{Backend: b, batch: br}, nil
	}
	return b, nil
}

// Search delegates to the inner backend.
func (b *Backend) Search(
	ctx context.Context, q query.Query, offset, limit int, params query.Params,
) (record.Collection, error) {
	return b.inner.Search(ctx, q, offset, limit, params)
}

// Retrieve serves id from the cache, loading it on a miss.
func (b *Backend) Retrieve(ctx context.Context, id string, params query.Params) (record.Collection, error) {
	key := cacheKey(id, params)
	if rec, ok := b.cache.Get(key); ok {
		b.count("hit", 1)
		return record.Collection{Records: []record.Record{rec}, Total: 1}, nil
	}
	b.count("miss", 1)

	res, err := b.inner.Retrieve(ctx, id, params)
	if err != nil {
		return record.Collection{}, err
	}
	for i := range res.Records {
		if res.Records[i].ID() == id {
			b.cache.Add(key, res.Records[i])
		}
	}
	return res, nil
}

// RetrieveBatch serves cached ids and loads the rest in one inner batch, in request order.
func (b *BatchBackend) RetrieveBatch(
	ctx context.Context, ids []string, params query.Params,
) (record.Collection, error) {
	found := make(map[string]record.Record, len(ids))
	var misses []string
	for _, id := range ids {
		if rec, ok := b.cache.Get(cacheKey(id, params)); ok {
			found[id] = rec
			continue
		}
		misses = append(misses, id)
	}
	b.count("hit", len(found))
	b.count("miss", len(misses))

	if len(misses) > 0 {
		res, err := b.batch.RetrieveBatch(ctx, misses, params)
		if err != nil {
			return record.Collection{}, err
		}
		for i := range res.Records {
			rec := res.Records[i]
			found[rec.ID()] = rec
			b.cache.Add(cacheKey(rec.ID(), params), rec)
		}
	}

	recs := make([]record.Record, 0, len(found))
	for _, id := range ids {
		if rec, ok := found[id]; ok {
			recs = append(recs, rec)
			delete(found, id)
		}
	}
	return record.Collection{Records: recs, Total: len(recs)}, nil
}

// Len returns the number of cached records.
func (b *Backend) Len() int { return b.cache.Len() }

func (b *Backend) count(result string, n int) {
	if n > 0 {
		metrics.RecordCacheTotal.WithLabelValues(b.role, result).Add(float64(n))
	}
}

// cacheKey scopes an id by its parameters, which may change what a backend returns.
func cacheKey(id string, params query.Params) string {
	if len(params) == 0 {
		return id
	}
	var sb strings.Builder
	sb.WriteString(id)
	for _, k := range params.Keys() {
		sb.WriteByte(0)
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(strings.Join(params[k], ","))
	}
	return sb.String()
}
