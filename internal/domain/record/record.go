package record

import (
	"fmt"

	"github.com/kailas-cloud/blendex/internal/domain/facet"
)

// Source marks which backend produced a record.
type Source string

// Provenance tags.
const (
	SourceNone      Source = ""
	SourcePrimary   Source = "primary"
	SourceSecondary Source = "secondary"
)

// IsValid reports whether s is a known provenance tag.
func (s Source) IsValid() bool {
	return s == SourcePrimary || s == SourceSecondary
}

// Record is a single search hit owned by the backend that produced it.
// Only the provenance tag may change after construction.
type Record struct {
	id     string
	title  string
	score  float64
	fields map[string][]string
	source Source
}

// New creates a record. The id is required.
func New(id, title string, score float64, fields map[string][]string) (Record, error) {
	if id == "" {
		return Record{}, fmt.Errorf("record id is required")
	}
	return Record{id: id, title: title, score: score, fields: fields}, nil
}

// Reconstruct restores a record from trusted storage without validation.
func Reconstruct(id, title string, score float64, fields map[string][]string, source Source) Record {
	return Record{id: id, title: title, score: score, fields: fields, source: source}
}

// ID returns the unique record identifier.
func (r *Record) ID() string { return r.id }

// Title returns the display title.
func (r *Record) Title() string { return r.title }

// Score returns the backend relevance score. Scores of different backends are not comparable.
func (r *Record) Score() float64 { return r.score }

// Fields returns all stored fields.
func (r *Record) Fields() map[string][]string { return r.fields }

// Field returns the values of a single field.
func (r *Record) Field(name string) []string { return r.fields[name] }

// Source returns the provenance tag.
func (r *Record) Source() Source { return r.source }

// SetSource sets the provenance tag.
func (r *Record) SetSource(s Source) { r.source = s }

// Collection is one backend response: a page of records, the total hit count and facets.
type Collection struct {
	Records []Record
	Total   int
	Facets  facet.Set
}

// Len returns the number of records in the page.
func (c Collection) Len() int { return len(c.Records) }

// IDs returns record identifiers in page order.
func (c Collection) IDs() []string {
	ids := make([]string, len(c.Records))
	for i := range c.Records {
		ids[i] = c.Records[i].ID()
	}
	return ids
}

// Tag sets the provenance of every record in the collection.
func (c Collection) Tag(s Source) {
	for i := range c.Records {
		c.Records[i].SetSource(s)
	}
}
