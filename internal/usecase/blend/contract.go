package blend

import (
	"context"

	"github.com/kailas-cloud/blendex/internal/domain/query"
	"github.com/kailas-cloud/blendex/internal/domain/record"
)

// Backend is one side of the blend: a ranked, faceted search index.
type Backend interface {
	// Search returns records [offset, offset+limit) with the total hit count and facets.
	// A zero limit is a count-only call.
	Search(ctx context.Context, q query.Query, offset, limit int, params query.Params) (record.Collection, error)
	// Retrieve returns zero or one record.
	Retrieve(ctx context.Context, id string, params query.Params) (record.Collection, error)
}

// BatchRetriever is an optional Backend capability.
type BatchRetriever interface {
	RetrieveBatch(ctx context.Context, ids []string, params query.Params) (record.Collection, error)
}

// Translator rewrites a primary-form query for the secondary backend.
type Translator interface {
	Translate(q query.Query) (query.Query, error)
}

// Recorder observes blended windows.
type Recorder interface {
	ObserveWindow(primary, secondary int)
}
