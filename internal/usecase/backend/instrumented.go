package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/blendex/internal/domain"
	"github.com/kailas-cloud/blendex/internal/domain/query"
	"github.com/kailas-cloud/blendex/internal/domain/record"
	"github.com/kailas-cloud/blendex/internal/logger"
	"github.com/kailas-cloud/blendex/internal/metrics"
	"github.com/kailas-cloud/blendex/internal/usecase/blend"
)

// Instrumented wraps a backend with Prometheus metrics and debug logging.
type Instrumented struct {
	inner  blend.Backend
	role   string
	driver string
}

// InstrumentedBatch is Instrumented for backends with batch retrieval.
type InstrumentedBatch struct {
	*Instrumented
	batch blend.BatchRetriever
}

// Instrument decorates inner. The result implements blend.BatchRetriever
// only when inner does, so the engine's fallback detection keeps working.
func Instrument(inner blend.Backend, role, driver string) blend.Backend {
	i := &Instrumented{inner: inner, role: role, driver: driver}
	if br, ok := inner.(blend.BatchRetriever); ok {
		return &InstrumentedBatch{Instrumented: i, batch: br}
	}
	return i
}

// Search delegates to the inner backend.
func (b *Instrumented) Search(
	ctx context.Context, q query.Query, offset, limit int, params query.Params,
) (record.Collection, error) {
	start := time.Now()
	res, err := b.inner.Search(ctx, q, offset, limit, params)
	b.observe(ctx, "search", start, err,
		zap.Int("offset", offset),
		zap.Int("limit", limit),
		zap.Int("returned", len(res.Records)),
		zap.Int("total", res.Total),
	)
	if err != nil {
		return record.Collection{}, fmt.Errorf("%s search: %w", b.driver, err)
	}
	return res, nil
}

// Retrieve delegates to the inner backend.
func (b *Instrumented) Retrieve(ctx context.Context, id string, params query.Params) (record.Collection, error) {
	start := time.Now()
	res, err := b.inner.Retrieve(ctx, id, params)
	b.observe(ctx, "retrieve", start, err, zap.String("id", id), zap.Int("returned", len(res.Records)))
	if err != nil {
		return record.Collection{}, fmt.Errorf("%s retrieve: %w", b.driver, err)
	}
	return res, nil
}

// RetrieveBatch delegates to the inner batch capability.
func (b *InstrumentedBatch) RetrieveBatch(
	ctx context.Context, ids []string, params query.Params,
) (record.Collection, error) {
	start := time.Now()
	res, err := b.batch.RetrieveBatch(ctx, ids, params)
	b.observe(ctx, "retrieve_batch", start, err, zap.Int("requested", len(ids)), zap.Int("returned", len(res.Records)))
	if err != nil {
		return record.Collection{}, fmt.Errorf("%s retrieve batch: %w", b.driver, err)
	}
	return res, nil
}

func (b *Instrumented) observe(ctx context.Context, op string, start time.Time, err error, fields ...zap.Field) {
	duration := time.Since(start)
	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		status = "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = "canceled"
	default:
		status = "error"
	}

	metrics.BackendRequestsTotal.WithLabelValues(b.role, b.driver, op, status).Inc()
	metrics.BackendRequestDuration.WithLabelValues(b.role, b.driver, op).Observe(duration.Seconds())

	log := logger.FromContext(ctx)
	fields = append(fields,
		zap.String("backend", b.role),
		zap.String("driver", b.driver),
		zap.String("op", op),
		zap.Duration("duration", duration),
	)
	if status == "error" {
		log.Warn("Backend call failed", append(fields, zap.Error(err))...)
		return
	}
	log.Debug("Backend call completed", fields...)
}
