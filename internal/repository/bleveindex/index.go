package bleveindex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/kailas-cloud/blendex/internal/db"
)

// Schema lists the record fields the index knows how to treat.
// Fields outside the schema are stored and returned but only searchable through _all.
type Schema struct {
	TextFields    []string
	NumericFields []string
	FacetFields   []string // indexed verbatim with the keyword analyzer
}

func (s Schema) sortable(field string) bool {
	return field == db.TitleField ||
		slices.Contains(s.NumericFields, field) ||
		slices.Contains(s.FacetFields, field)
}

func (s Schema) numeric(field string) bool {
	return slices.Contains(s.NumericFields, field)
}

// Index is a search backend over an embedded Bleve index.
type Index struct {
	index     bleve.Index
	schema    Schema
	facetSize int
}

// Option configures an Index.
type Option func(*Index)

// WithFacetSize caps the number of terms returned per facet field.
func WithFacetSize(n int) Option {
	return func(i *Index) { i.facetSize = n }
}

// Open opens the index at path, creating it when missing.
// An empty path creates an in-memory index.
func Open(path string, schema Schema, opts ...Option) (*Index, error) {
	m := buildMapping(schema)

	var (
		idx bleve.Index
		err error
	)
	if path == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		idx, err = bleve.Open(path)
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
				return nil, fmt.Errorf("create directory for %s: %w", path, mkErr)
			}
			idx, err = bleve.New(path, m)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open bleve index %q: %w", path, err)
	}

	i := &Index{index: idx, schema: schema, facetSize: 30}
	for _, o := range opts {
		o(i)
	}
	return i, nil
}

func buildMapping(s Schema) *mapping.IndexMappingImpl {
	doc := mapping.NewDocumentMapping()

	doc.AddFieldMappingsAt(db.TitleField, mapping.NewTextFieldMapping())
	for _, f := range s.TextFields {
		doc.AddFieldMappingsAt(f, mapping.NewTextFieldMapping())
	}
	for _, f := range s.NumericFields {
		doc.AddFieldMappingsAt(f, mapping.NewNumericFieldMapping())
	}
	for _, f := range s.FacetFields {
		doc.AddFieldMappingsAt(f, mapping.NewKeywordFieldMapping())
	}

	m := mapping.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// Ping reports whether the index is open and readable.
func (i *Index) Ping(_ context.Context) error {
	if _, err := i.index.DocCount(); err != nil {
		return fmt.Errorf("bleve doc count: %w", err)
	}
	return nil
}

// Close releases the index files.
func (i *Index) Close() error {
	return i.index.Close()
}
