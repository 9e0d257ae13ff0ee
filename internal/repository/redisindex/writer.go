package redisindex

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/blendex/internal/db"
	"github.com/kailas-cloud/blendex/internal/domain"
	"github.com/kailas-cloud/blendex/internal/domain/record"
)

// writeStore is the consumer interface for seeding an index (ISP).
type writeStore interface {
	db.HashStore
	db.IndexManager
}

// Writer loads records into a Redis backend.
type Writer struct {
	store    writeStore
	schema   Schema
	embedder domain.Embedder // nil = no vectors
}

// NewWriter creates a Writer. A non-nil embedder stores a vector per record,
// computed from the title and text fields.
func NewWriter(s writeStore, schema Schema, e domain.Embedder) *Writer {
	return &Writer{store: s, schema: schema, embedder: e}
}

// EnsureIndex creates the FT index unless it already exists.
func (w *Writer) EnsureIndex(ctx context.Context) error {
	exists, err := w.store.IndexExists(ctx, w.schema.Index)
	if err != nil {
		return fmt.Errorf("check index %s: %w", w.schema.Index, err)
	}
	if exists {
		return nil
	}

	def, err := w.schema.Definition()
	if err != nil {
		return err
	}
	if err := w.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", w.schema.Index, err)
	}
	return nil
}

// Write stores records as hashes, embedding them first when configured.
func (w *Writer) Write(ctx context.Context, recs []record.Record) error {
	if len(recs) == 0 {
		return nil
	}

	var vectors [][]float32
	if w.embedder != nil {
		texts := make([]string, len(recs))
		for i := range recs {
			texts[i] = w.embeddingText(recs[i])
		}
		res, err := domain.EmbedAll(ctx, w.embedder, texts)
		if err != nil {
			return fmt.Errorf("embed records: %w", err)
		}
		if len(res.Embeddings) != len(recs) {
			return fmt.Errorf("embed records: got %d vectors for %d records", len(res.Embeddings), len(recs))
		}
		vectors = res.Embeddings
	}

	items := make([]db.HashSetItem, len(recs))
	for i := range recs {
		var vec []float32
		if vectors != nil {
			vec = vectors[i]
		}
		items[i] = db.HashSetItem{
			Key:    w.schema.key(recs[i].ID()),
			Fields: buildHashFields(recs[i], vec),
		}
	}

	if err := w.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("write %d records: %w", len(items), err)
	}
	return nil
}

func (w *Writer) embeddingText(rec record.Record) string {
	parts := []string{rec.Title()}
	for _, f := range w.schema.TextFields {
		parts = append(parts, rec.Field(f)...)
	}
	return strings.Join(parts, "\n")
}
