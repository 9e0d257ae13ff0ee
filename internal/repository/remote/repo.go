// Package remote is a backend served by another blendex-compatible HTTP API.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/kailas-cloud/blendex/internal/domain"
	"github.com/kailas-cloud/blendex/internal/domain/facet"
	"github.com/kailas-cloud/blendex/internal/domain/query"
	"github.com/kailas-cloud/blendex/internal/domain/record"
	"github.com/kailas-cloud/blendex/internal/domain/search/filter"
	blendex "github.com/kailas-cloud/blendex/pkg/sdk"
)

// Repo searches a remote blendex API. It has no batch retrieval.
type Repo struct {
	client  *blendex.Client
	limiter *rate.Limiter
}

// Option configures a Repo.
type Option func(*Repo)

// WithRateLimit caps outgoing calls at rps requests per second with the given burst.
// A non-positive rps leaves calls unlimited.
func WithRateLimit(rps float64, burst int) Option {
	return func(r *Repo) {
		if rps <= 0 {
			r.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// New creates a remote backend over client.
func New(client *blendex.Client, opts ...Option) *Repo {
	r := &Repo{client: client}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Search runs one remote search window.
func (r *Repo) Search(
	ctx context.Context, q query.Query, offset, limit int, params query.Params,
) (record.Collection, error) {
	b := r.client.Search().
		Query(q.Text()).
		Field(q.Field()).
		Offset(offset).
		Limit(limit).
		Params(url.Values(params))
	if err := applyFilter(b, q.Filter()); err != nil {
		return record.Collection{}, err
	}

	if err := r.wait(ctx); err != nil {
		return record.Collection{}, err
	}
	res, err := b.Do(ctx)
	if err != nil {
		return record.Collection{}, mapError(err)
	}

	out := record.Collection{
		Records: make([]record.Record, 0, len(res.Records)),
		Total:   res.Total,
		Facets:  toFacets(res.Facets),
	}
	for _, rec := range res.Records {
		out.Records = append(out.Records, toRecord(rec))
	}
	return out, nil
}

// Retrieve fetches one record. A missing record is domain.ErrNotFound.
func (r *Repo) Retrieve(ctx context.Context, id string, params query.Params) (record.Collection, error) {
	if err := r.wait(ctx); err != nil {
		return record.Collection{}, err
	}
	rec, err := r.client.Get(ctx, id, url.Values(params))
	if err != nil {
		return record.Collection{}, mapError(err)
	}
	return record.Collection{Records: []record.Record{toRecord(rec)}, Total: 1}, nil
}

// Ping checks the remote health endpoint. A degraded remote counts as down.
func (r *Repo) Ping(ctx context.Context) error {
	hs, err := r.client.Health(ctx)
	if err != nil {
		return mapError(err)
	}
	if !hs.Healthy() {
		return fmt.Errorf("%w: remote status %q", domain.ErrBackendUnavailable, hs.Status)
	}
	return nil
}

func (r *Repo) wait(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	}
	return nil
}

// applyFilter maps the expression onto the builder. The HTTP API only takes
// numeric ranges as required conditions.
func applyFilter(b *blendex.SearchBuilder, expr filter.Expression) error {
	for _, c := range expr.Must() {
		if c.IsRange() {
			rg := c.Range()
			b.Range(blendex.Range{Key: c.Key(), GT: rg.GT(), GTE: rg.GTE(), LT: rg.LT(), LTE: rg.LTE()})
			continue
		}
		b.Where(c.Key(), c.Match())
	}
	for _, c := range expr.Should() {
		if c.IsRange() {
			return fmt.Errorf("%w: optional range on %s is not supported by remote backend", domain.ErrInvalidQuery, c.Key())
		}
		b.Any(c.Key(), c.Match())
	}
	for _, c := range expr.MustNot() {
		if c.IsRange() {
			return fmt.Errorf("%w: excluded range on %s is not supported by remote backend", domain.ErrInvalidQuery, c.Key())
		}
		b.Exclude(c.Key(), c.Match())
	}
	return nil
}

var errorMap = []struct {
	sdk, dom error
}{
	{blendex.ErrNotFound, domain.ErrNotFound},
	{blendex.ErrInvalidRequest, domain.ErrInvalidQuery},
	{blendex.ErrRateLimited, domain.ErrRateLimited},
	{blendex.ErrEmbeddingProviderError, domain.ErrEmbeddingProviderError},
	{blendex.ErrNotImplemented, domain.ErrNotImplemented},
}

func mapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	for _, m := range errorMap {
		if errors.Is(err, m.sdk) {
			return fmt.Errorf("%w: %w", m.dom, err)
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
}

func toRecord(r blendex.Record) record.Record {
	return record.Reconstruct(r.ID, r.Title, r.Score, r.Fields, record.SourceNone)
}

func toFacets(in map[string][]blendex.FacetCount) facet.Set {
	if len(in) == 0 {
		return nil
	}
	out := make(facet.Set, len(in))
	for field, counts := range in {
		fc := make([]facet.Count, len(counts))
		for i, c := range counts {
			fc[i] = facet.Count{Value: c.Value, Count: c.Count}
		}
		out[field] = fc
	}
	return out
}
