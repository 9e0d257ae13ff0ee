package blend

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/blendex/internal/domain"
	"github.com/kailas-cloud/blendex/internal/domain/facet"
	"github.com/kailas-cloud/blendex/internal/domain/query"
	"github.com/kailas-cloud/blendex/internal/domain/record"
)

// Engine blends a primary and a secondary backend into one result list.
type Engine struct {
	primary    Backend
	secondary  Backend
	translator Translator
	merger     *FacetMerger
	settings   settings
	recorder   Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithTranslator sets the secondary query translator. Defaults to Identity.
func WithTranslator(t Translator) Option {
	return func(e *Engine) { e.translator = t }
}

// WithFacetMapping sets the facet mapping table.
func WithFacetMapping(t facet.Table) Option {
	return func(e *Engine) { e.merger = NewFacetMerger(t) }
}

// WithRecorder observes every returned window.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// New creates a blending engine.
func New(primary, secondary Backend, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		primary:    primary,
		secondary:  secondary,
		translator: Identity{},
		merger:     NewFacetMerger(nil),
		settings:   cfg.resolve(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Search returns the blended window [offset, offset+limit).
func (e *Engine) Search(
	ctx context.Context, q query.Query, offset, limit int, params query.Params,
) (*Collection, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("%w: offset and limit must be non-negative", domain.ErrInvalidQuery)
	}

	sq, err := e.translator.Translate(q)
	if err != nil {
		return nil, fmt.Errorf("%w: translate query: %w", domain.ErrInvalidQuery, err)
	}
	pParams, sParams := params.Split()

	s := e.settings
	fetchLimit := s.blendLimit
	if offset > s.blendLimit {
		fetchLimit = 0
	}

	var pRes, sRes record.Collection
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pRes, err = e.primary.Search(gctx, q, 0, fetchLimit, pParams)
		return domain.NewBackendError(string(record.SourcePrimary), "search", err)
	})
	g.Go(func() error {
		var err error
		sRes, err = e.secondary.Search(gctx, sq, 0, fetchLimit, sParams)
		return domain.NewBackendError(string(record.SourceSecondary), "search", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Cap to the fetch size in case an adapter over-delivers.
	pRes.Records = pRes.Records[:min(len(pRes.Records), fetchLimit)]
	sRes.Records = sRes.Records[:min(len(sRes.Records), fetchLimit)]

	nPrimary, nSecondary := len(pRes.Records), len(sRes.Records)
	if fetchLimit == 0 {
		nPrimary = min(pRes.Total, s.blendLimit)
		nSecondary = min(sRes.Total, s.blendLimit)
	}
	pl := interleave(nPrimary, nSecondary, s)

	ps := newStream(e.primary, q, pParams, record.SourcePrimary, s.blockSize, pRes)
	ss := newStream(e.secondary, sq, sParams, record.SourceSecondary, s.blockSize, sRes)

	window, err := e.fill(ctx, pl, ps, ss, offset, limit)
	if err != nil {
		return nil, err
	}

	facets := e.merger.Merge(pRes.Facets, sRes.Facets)
	c := newCollection(window, pRes.Total+sRes.Total, facets, offset, limit)
	if e.recorder != nil {
		e.recorder.ObserveWindow(c.PrimaryCount(), c.SecondaryCount())
	}
	return c, nil
}

// fill walks the prefix plan and then round-robin positions, collecting
// records for [offset, offset+limit). Positions before offset only advance cursors.
func (e *Engine) fill(
	ctx context.Context, pl plan, ps, ss *stream, offset, limit int,
) ([]record.Record, error) {
	end := offset + limit
	window := make([]record.Record, 0, min(limit, MaxBlendLimit))

	streamFor := func(src record.Source) *stream {
		if src == record.SourcePrimary {
			return ps
		}
		return ss
	}

	for pos, src := range pl.slots {
		if pos >= end {
			return window, nil
		}
		st := streamFor(src)
		if pos < offset {
			st.skip()
			continue
		}
		r, ok, err := st.next(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			window = append(window, r)
		}
	}

	blockSize := e.settings.blockSize
	for pos := len(pl.slots); pos < end; {
		first, second := ps, ss
		if (pos/blockSize)%2 == 1 {
			first, second = ss, ps
		}
		st := first
		if st.exhausted() {
			st = second
		}
		if st.exhausted() {
			break
		}

		if pos < offset {
			st.skip()
			pos++
			continue
		}
		r, ok, err := st.next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Backend ran dry before its reported total; retry this position.
			continue
		}
		window = append(window, r)
		pos++
	}
	return window, nil
}

// Retrieve looks the id up in the primary backend, then in the secondary.
func (e *Engine) Retrieve(ctx context.Context, id string, params query.Params) (record.Collection, error) {
	pParams, sParams := params.Split()

	res, err := retrieveOne(ctx, e.primary, id, pParams)
	if err != nil {
		return record.Collection{}, domain.NewBackendError(string(record.SourcePrimary), "retrieve", err)
	}
	if len(res.Records) > 0 {
		res.Tag(record.SourcePrimary)
		return res, nil
	}

	res, err = retrieveOne(ctx, e.secondary, id, sParams)
	if err != nil {
		return record.Collection{}, domain.NewBackendError(string(record.SourceSecondary), "retrieve", err)
	}
	res.Tag(record.SourceSecondary)
	return res, nil
}

// RetrieveBatch returns primary matches first, then secondary matches for the rest.
// Duplicate ids are looked up once.
func (e *Engine) RetrieveBatch(ctx context.Context, ids []string, params query.Params) (record.Collection, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return record.Collection{}, nil
	}
	pParams, sParams := params.Split()

	pRes, err := retrieveMany(ctx, e.primary, ids, pParams)
	if err != nil {
		return record.Collection{}, domain.NewBackendError(string(record.SourcePrimary), "retrieve_batch", err)
	}
	pRes.Tag(record.SourcePrimary)

	found := make(map[string]bool, len(pRes.Records))
	out := make([]record.Record, 0, len(ids))
	for _, r := range pRes.Records {
		if found[r.ID()] {
			continue
		}
		found[r.ID()] = true
		out = append(out, r)
	}

	missing := make([]string, 0, len(ids)-len(found))
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return record.Collection{Records: out, Total: len(out)}, nil
	}

	sRes, err := retrieveMany(ctx, e.secondary, missing, sParams)
	if err != nil {
		return record.Collection{}, domain.NewBackendError(string(record.SourceSecondary), "retrieve_batch", err)
	}
	sRes.Tag(record.SourceSecondary)
	for _, r := range sRes.Records {
		if found[r.ID()] {
			continue
		}
		found[r.ID()] = true
		out = append(out, r)
	}
	return record.Collection{Records: out, Total: len(out)}, nil
}

// retrieveOne treats ErrNotFound as an empty result.
func retrieveOne(ctx context.Context, b Backend, id string, params query.Params) (record.Collection, error) {
	res, err := b.Retrieve(ctx, id, params)
	if errors.Is(err, domain.ErrNotFound) {
		return record.Collection{}, nil
	}
	return res, err
}

// retrieveMany uses the batch capability when present, otherwise retrieves one by one.
func retrieveMany(ctx context.Context, b Backend, ids []string, params query.Params) (record.Collection, error) {
	if br, ok := b.(BatchRetriever); ok {
		return br.RetrieveBatch(ctx, ids, params)
	}

	var out record.Collection
	for _, id := range ids {
		res, err := retrieveOne(ctx, b, id, params)
		if err != nil {
			return record.Collection{}, fmt.Errorf("retrieve %q: %w", id, err)
		}
		out.Records = append(out.Records, res.Records...)
	}
	out.Total = len(out.Records)
	return out, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
