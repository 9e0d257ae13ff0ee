package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/blendex/internal/config"
	dbRedis "github.com/kailas-cloud/blendex/internal/db/redis"
	"github.com/kailas-cloud/blendex/internal/domain"
	"github.com/kailas-cloud/blendex/internal/domain/facet"
	"github.com/kailas-cloud/blendex/internal/domain/record"
	"github.com/kailas-cloud/blendex/internal/metrics"
	"github.com/kailas-cloud/blendex/internal/repository/bleveindex"
	"github.com/kailas-cloud/blendex/internal/repository/embcache"
	"github.com/kailas-cloud/blendex/internal/repository/reccache"
	"github.com/kailas-cloud/blendex/internal/repository/redisindex"
	"github.com/kailas-cloud/blendex/internal/repository/remote"
	openaiEmb "github.com/kailas-cloud/blendex/internal/transport/openai"
	"github.com/kailas-cloud/blendex/internal/usecase/backend"
	"github.com/kailas-cloud/blendex/internal/usecase/blend"
	embeddinguc "github.com/kailas-cloud/blendex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/blendex/internal/usecase/health"
	"github.com/kailas-cloud/blendex/internal/version"
	blendex "github.com/kailas-cloud/blendex/pkg/sdk"
)

const (
	rolePrimary   = "primary"
	roleSecondary = "secondary"
)

// recordWriter loads records into a local backend.
type recordWriter interface {
	Write(ctx context.Context, recs []record.Record) error
}

// wiredBackend is one configured side of the blend.
type wiredBackend struct {
	search blend.Backend // decorated, handed to the engine
	pinger healthuc.Pinger
	writer recordWriter // nil when the backend is read-only
}

// wiring is the composition root shared by serve and import.
// It owns every connection it opens.
type wiring struct {
	cfg    config.Config
	logger *zap.Logger

	stores map[string]*dbRedis.Store

	embedBase  *openaiEmb.Embedder
	docEmbed   domain.Embedder
	queryEmbed domain.Embedder

	closers []func()
}

func newWiring(cfg config.Config, logger *zap.Logger) *wiring {
	return &wiring{cfg: cfg, logger: logger, stores: make(map[string]*dbRedis.Store)}
}

// Close releases indexes and connections in reverse order of creation.
func (w *wiring) Close() {
	for i := len(w.closers) - 1; i >= 0; i-- {
		w.closers[i]()
	}
	w.closers = nil
}

// backend builds the configured driver and decorates it with metrics and,
// when cache_size is set, a retrieve cache.
func (w *wiring) backend(ctx context.Context, role string, bc config.BackendConfig) (wiredBackend, error) {
	var (
		raw blend.Backend
		out wiredBackend
	)

	switch bc.Driver {
	case config.DriverBleve:
		idx, err := bleveindex.Open(bc.Path, bleveindex.Schema{
			TextFields:    bc.TextFields,
			NumericFields: bc.NumericFields,
			FacetFields:   bc.FacetFields,
		}, bleveindex.WithFacetSize(bc.FacetSize))
		if err != nil {
			return wiredBackend{}, err
		}
		w.closers = append(w.closers, func() {
			if err := idx.Close(); err != nil {
				w.logger.Warn("Failed to close bleve index", zap.String("backend", role), zap.Error(err))
			}
		})
		raw, out.pinger, out.writer = idx, idx, idx
		w.logger.Info("Opened bleve index", zap.String("backend", role), zap.String("path", bc.Path))

	case config.DriverRedis:
		repo, writer, err := w.redisBackend(ctx, role, bc)
		if err != nil {
			return wiredBackend{}, err
		}
		raw, out.pinger, out.writer = repo, repo, writer

	case config.DriverRemote:
		client, err := blendex.New(bc.URL,
			blendex.WithAPIKey(bc.APIKey),
			blendex.WithTimeout(time.Duration(bc.TimeoutSec)*time.Second),
			blendex.WithUserAgent("blendex/"+version.Version),
			blendex.WithPrometheus(prometheus.DefaultRegisterer),
		)
		if err != nil {
			return wiredBackend{}, fmt.Errorf("create remote client: %w", err)
		}
		repo := remote.New(client, remote.WithRateLimit(bc.RateLimit, bc.Burst))
		raw, out.pinger = repo, repo
		w.logger.Info("Using remote backend",
			zap.String("backend", role),
			zap.String("url", bc.URL),
			zap.Float64("rate_limit", bc.RateLimit),
		)

	default:
		return wiredBackend{}, fmt.Errorf("unknown driver %q", bc.Driver)
	}

	out.search = backend.Instrument(raw, role, bc.Driver)
	if bc.CacheSize > 0 {
		cached, err := reccache.New(out.search, bc.CacheSize, role)
		if err != nil {
			return wiredBackend{}, err
		}
		out.search = cached
	}
	return out, nil
}

func (w *wiring) redisBackend(
	ctx context.Context, role string, bc config.BackendConfig,
) (*redisindex.Repo, *redisindex.Writer, error) {
	store, err := w.redisStore(ctx, bc)
	if err != nil {
		return nil, nil, err
	}

	schema := redisindex.Schema{
		Index:         bc.Index,
		Prefix:        bc.KeyPrefix,
		TextFields:    bc.TextFields,
		NumericFields: bc.NumericFields,
		FacetFields:   bc.FacetFields,
	}
	opts := []redisindex.Option{redisindex.WithFacetSize(bc.FacetSize)}

	var docEmbed domain.Embedder
	if bc.Mode == config.ModeSemantic {
		w.initEmbedders(store)
		schema.Dimensions = w.cfg.Embedding.Dimensions
		opts = append(opts, redisindex.WithSemantic(w.queryEmbed, bc.KNN))
		docEmbed = w.docEmbed
	}

	writer := redisindex.NewWriter(store, schema, docEmbed)
	if err := writer.EnsureIndex(ctx); err != nil {
		return nil, nil, fmt.Errorf("ensure index %s: %w", schema.Index, err)
	}
	w.logger.Info("Redis index ready",
		zap.String("backend", role),
		zap.String("index", schema.Index),
		zap.String("mode", bc.Mode),
	)
	return redisindex.New(store, schema, opts...), writer, nil
}

// redisStore returns a connected store, shared between backends on the same server.
func (w *wiring) redisStore(ctx context.Context, bc config.BackendConfig) (*dbRedis.Store, error) {
	key := strings.Join(bc.Addrs, ",") + "|" + bc.Password
	if s, ok := w.stores[key]; ok {
		return s, nil
	}

	s, err := dbRedis.NewStore(dbRedis.Config{Addrs: bc.Addrs, Password: bc.Password})
	if err != nil {
		return nil, fmt.Errorf("create redis store: %w", err)
	}
	w.closers = append(w.closers, s.Close)

	if err := s.WaitForReady(ctx, time.Duration(bc.ReadinessTimeout)*time.Second); err != nil {
		return nil, fmt.Errorf("redis not ready: %w", err)
	}
	w.logger.Info("Connected to redis", zap.Strings("addrs", bc.Addrs))
	w.stores[key] = s
	return s, nil
}

// initEmbedders assembles the embedder chain once: OpenAI -> Cached -> Instrumented.
// The query embedder prepends the query instruction; the cache key therefore
// separates query and document vectors.
func (w *wiring) initEmbedders(store *dbRedis.Store) {
	if w.embedBase != nil {
		return
	}
	ec := w.cfg.Embedding
	w.embedBase = openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     ec.APIKey,
		BaseURL:    ec.BaseURL,
		Model:      ec.Model,
		Dimensions: ec.Dimensions,
		Logger:     w.logger,
	})
	cached := embcache.New(w.embedBase, store, ec.Model,
		time.Duration(ec.CacheTTLHours)*time.Hour, metrics.EmbeddingCacheTotal, w.logger)

	w.docEmbed = embeddinguc.NewInstrumentedEmbedder(cached, ec.Model, w.logger)
	w.queryEmbed = embeddinguc.NewInstrumentedEmbedder(cached, ec.Model, w.logger,
		embeddinguc.WithInstruction(ec.QueryInstruction))
	w.logger.Info("Embedders created", zap.String("model", ec.Model), zap.Int("dimensions", ec.Dimensions))
}

// embeddingChecker returns nil (not a typed nil) when no semantic backend is configured.
func (w *wiring) embeddingChecker() healthuc.EmbeddingChecker {
	if w.embedBase == nil {
		return nil
	}
	return w.embedBase
}

func facetTable(rules []config.FacetRule) (facet.Table, error) {
	table := make(facet.Table, 0, len(rules))
	var errs []error
	for i, r := range rules {
		rule, err := facet.NewRule(r.Primary, r.Secondary, r.Values, r.Hierarchical)
		if err != nil {
			errs = append(errs, fmt.Errorf("facets[%d]: %w", i, err))
			continue
		}
		table = append(table, rule)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return table, nil
}
