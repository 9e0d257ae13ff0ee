package blend

import (
	"context"

	"github.com/kailas-cloud/blendex/internal/domain"
	"github.com/kailas-cloud/blendex/internal/domain/query"
	"github.com/kailas-cloud/blendex/internal/domain/record"
)

// stream is a lazy, position-addressed view over one backend's ranked results.
// Records already fetched are served from memory; anything else is fetched in
// batches starting at the requested position.
type stream struct {
	backend Backend
	query   query.Query
	params  query.Params
	source  record.Source
	batch   int

	fetched map[int]record.Record
	total   int
	cursor  int // next unconsumed position
}

func newStream(
	b Backend, q query.Query, params query.Params,
	src record.Source, batch int, seed record.Collection,
) *stream {
	s := &stream{
		backend: b,
		query:   q,
		params:  params,
		source:  src,
		batch:   batch,
		fetched: make(map[int]record.Record, len(seed.Records)),
		total:   seed.Total,
	}
	for i, r := range seed.Records {
		r.SetSource(src)
		s.fetched[i] = r
	}
	return s
}

// exhausted reports whether the cursor has passed the known total.
func (s *stream) exhausted() bool {
	return s.cursor >= s.total
}

// skip consumes the record at the cursor without loading it.
func (s *stream) skip() {
	s.cursor++
}

// next loads and consumes the record at the cursor. ok is false when the
// backend has nothing at that position; the stream is then exhausted.
func (s *stream) next(ctx context.Context) (record.Record, bool, error) {
	pos := s.cursor
	if r, hit := s.fetched[pos]; hit {
		s.cursor++
		return r, true, nil
	}

	res, err := s.backend.Search(ctx, s.query, pos, s.batch, s.params)
	if err != nil {
		return record.Record{}, false, domain.NewBackendError(string(s.source), "search", err)
	}
	if len(res.Records) == 0 {
		s.total = pos
		return record.Record{}, false, nil
	}
	for i, r := range res.Records {
		r.SetSource(s.source)
		s.fetched[pos+i] = r
	}
	s.cursor++
	return s.fetched[pos], true, nil
}
