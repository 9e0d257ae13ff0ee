package blend

import (
	"context"
	"fmt"
	"sync"

	"github.com/kailas-cloud/blendex/internal/domain"
	"github.com/kailas-cloud/blendex/internal/domain/facet"
	"github.com/kailas-cloud/blendex/internal/domain/query"
	"github.com/kailas-cloud/blendex/internal/domain/record"
)

// --- Mocks ---

type searchCall struct {
	offset, limit int
	params        query.Params
	query         query.Query
}

// mockBackend serves ids[offset:offset+limit]; total can overstate len(ids).
type mockBackend struct {
	mu        sync.Mutex
	ids       []string
	total     int
	facets    facet.Set
	searchErr error
	retErr    error
	calls     []searchCall
	retrieved []string
}

func newMockBackend(prefix string, n int) *mockBackend {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return &mockBackend{ids: ids, total: n}
}

func (m *mockBackend) Search(
	_ context.Context, q query.Query, offset, limit int, params query.Params,
) (record.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, searchCall{offset: offset, limit: limit, params: params, query: q})
	if m.searchErr != nil {
		return record.Collection{}, m.searchErr
	}
	var recs []record.Record
	for i := offset; i < offset+limit && i < len(m.ids); i++ {
		recs = append(recs, record.Reconstruct(m.ids[i], "title "+m.ids[i], 0, nil, record.SourceNone))
	}
	return record.Collection{Records: recs, Total: m.total, Facets: m.facets}, nil
}

func (m *mockBackend) Retrieve(_ context.Context, id string, _ query.Params) (record.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retrieved = append(m.retrieved, id)
	if m.retErr != nil {
		return record.Collection{}, m.retErr
	}
	for _, known := range m.ids {
		if known == id {
			return record.Collection{Records: []record.Record{record.Reconstruct(id, "", 0, nil, record.SourceNone)}, Total: 1}, nil
		}
	}
	return record.Collection{}, nil
}

func (m *mockBackend) searchCalls() []searchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]searchCall(nil), m.calls...)
}

// mockBatchBackend adds the batch capability.
type mockBatchBackend struct {
	*mockBackend
	batchCalls [][]string
}

func (m *mockBatchBackend) RetrieveBatch(
	_ context.Context, ids []string, _ query.Params,
) (record.Collection, error) {
	m.batchCalls = append(m.batchCalls, ids)
	var out record.Collection
	for _, id := range ids {
		for _, known := range m.ids {
			if known == id {
				out.Records = append(out.Records, record.Reconstruct(id, "", 0, nil, record.SourceNone))
			}
		}
	}
	out.Total = len(out.Records)
	return out, nil
}

// notFoundBackend answers Retrieve with ErrNotFound instead of an empty page.
type notFoundBackend struct {
	*mockBackend
}

func (m *notFoundBackend) Retrieve(ctx context.Context, id string, p query.Params) (record.Collection, error) {
	res, err := m.mockBackend.Retrieve(ctx, id, p)
	if err == nil && len(res.Records) == 0 {
		return res, domain.ErrNotFound
	}
	return res, err
}

type mockRecorder struct {
	primary, secondary int
	calls              int
}

func (m *mockRecorder) ObserveWindow(p, s int) {
	m.primary += p
	m.secondary += s
	m.calls++
}

type mockTranslator struct {
	err error
}

func (m *mockTranslator) Translate(q query.Query) (query.Query, error) {
	if m.err != nil {
		return query.Query{}, m.err
	}
	return q.WithField("translated"), nil
}

func intPtr(i int) *int { return &i }

func recordIDs(recs []record.Record) []string {
	out := make([]string, len(recs))
	for i := range recs {
		out[i] = recs[i].ID()
	}
	return out
}
