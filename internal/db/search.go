package db

import "github.com/kailas-cloud/blendex/internal/domain/search/filter"

// Reserved hash fields shared by the index schema and the record codec.
const (
	TitleField  = "title"
	VectorField = "__vector"
)

// Match selects documents: free text (optionally scoped to one TEXT field) plus filters.
type Match struct {
	Text    string
	Field   string // empty = all TEXT fields
	Filters filter.Expression
}

// PageQuery is the input for a paginated ranked search.
type PageQuery struct {
	IndexName    string
	Match        Match
	Offset       int
	Limit        int // 0 = count only
	SortBy       string
	SortDesc     bool
	ReturnFields []string
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Filters      filter.Expression
	Vector       []float32
	K            int
	Offset       int
	Limit        int
	ReturnFields []string
}

// FacetQuery counts distinct values of one TAG field over the matching documents.
type FacetQuery struct {
	IndexName string
	Match     Match
	Field     string
	Separator string
	Limit     int
}

// FacetBucket is one value of a facet field with its document count.
type FacetBucket struct {
	Value string
	Count int
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
