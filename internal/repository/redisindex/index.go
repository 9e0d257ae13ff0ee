package redisindex

import (
	"fmt"
	"slices"

	"github.com/kailas-cloud/blendex/internal/db"
)

// Schema describes how records of one backend are laid out in Redis.
type Schema struct {
	Index         string
	Prefix        string
	TextFields    []string
	NumericFields []string
	FacetFields   []string
	Dimensions    int // > 0 adds an HNSW cosine vector field
}

// Definition builds the FT index over the schema's hashes.
// Title is always a sortable TEXT field.
func (s Schema) Definition() (*db.IndexDefinition, error) {
	b := db.NewIndex(s.Index).Prefix(s.Prefix).Text(db.TitleField, true)
	for _, f := range s.TextFields {
		b.Text(f, false)
	}
	for _, f := range s.NumericFields {
		b.Numeric(f)
	}
	for _, f := range s.FacetFields {
		b.Facet(f)
	}
	if s.Dimensions > 0 {
		b.Vector(db.VectorField, s.Dimensions, db.VectorHNSW, db.DistanceCosine)
	}
	def, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", s.Index, err)
	}
	return def, nil
}

func (s Schema) key(id string) string { return s.Prefix + id }

func (s Schema) sortable(field string) bool {
	return field == db.TitleField || slices.Contains(s.NumericFields, field)
}
