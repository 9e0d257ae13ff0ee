package redisindex

import (
	"context"
	"sync"
	"testing"

	"github.com/kailas-cloud/blendex/internal/db"
	"github.com/kailas-cloud/blendex/internal/domain"
	"github.com/kailas-cloud/blendex/internal/domain/search/filter"
)

// mockStore implements both consumer interfaces for tests.
type mockStore struct {
	mu sync.Mutex

	pingFn         func(ctx context.Context) error
	searchPageFn   func(ctx context.Context, q *db.PageQuery) (*db.SearchResult, error)
	searchKNNFn    func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	facetCountsFn  func(ctx context.Context, q *db.FacetQuery) ([]db.FacetBucket, error)
	hGetAllFn      func(ctx context.Context, key string) (map[string]string, error)
	hGetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	indexExistsFn  func(ctx context.Context, name string) (bool, error)
	createIndexFn  func(ctx context.Context, def *db.IndexDefinition) error

	hset        []db.HashSetItem
	facetFields []string
}

func (m *mockStore) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

func (m *mockStore) SearchPage(ctx context.Context, q *db.PageQuery) (*db.SearchResult, error) {
	if m.searchPageFn != nil {
		return m.searchPageFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) FacetCounts(ctx context.Context, q *db.FacetQuery) ([]db.FacetBucket, error) {
	m.mu.Lock()
	m.facetFields = append(m.facetFields, q.Field)
	m.mu.Unlock()
	if m.facetCountsFn != nil {
		return m.facetCountsFn(ctx, q)
	}
	return nil, nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hGetAllFn != nil {
		return m.hGetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hGetAllMultiFn != nil {
		return m.hGetAllMultiFn(ctx, keys)
	}
	return make([]map[string]string, len(keys)), nil
}

func (m *mockStore) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	m.hset = append(m.hset, items...)
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) DropIndex(_ context.Context, _ string) error { return nil }

type mockEmbedder struct {
	vec   []float32
	err   error
	texts []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.texts = append(m.texts, text)
	return domain.EmbeddingResult{Embedding: m.vec}, m.err
}

func testSchema() Schema {
	return Schema{
		Index:         "blendex_primary",
		Prefix:        "blendex:primary:",
		NumericFields: []string{"year"},
		FacetFields:   []string{"format", "language"},
	}
}

func newTestRepo(t *testing.T, opts ...Option) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, testSchema(), opts...), ms
}

func mustMatch(t *testing.T, key, value string) filter.Expression {
	t.Helper()
	c, err := filter.NewMatch(key, value)
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	e, err := filter.NewExpression([]filter.Condition{c}, nil, nil)
	if err != nil {
		t.Fatalf("NewExpression: %v", err)
	}
	return e
}
