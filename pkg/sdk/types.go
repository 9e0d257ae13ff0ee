package blendex

// Record is a single blended search hit.
type Record struct {
	ID     string              `json:"id"`
	Title  string              `json:"title"`
	Score  float64             `json:"score"`
	Source string              `json:"source,omitempty"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// Field returns the first value of a field, or "".
func (r Record) Field(name string) string {
	if v := r.Fields[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// FacetCount is one facet value with its record count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// SearchResult is one blended result window.
type SearchResult struct {
	Total          int                     `json:"total"`
	Offset         int                     `json:"offset"`
	Limit          int                     `json:"limit"`
	PrimaryCount   int                     `json:"primary_count"`
	SecondaryCount int                     `json:"secondary_count"`
	Records        []Record                `json:"records"`
	Facets         map[string][]FacetCount `json:"facets"`
}

// HealthStatus represents the aggregated server health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok", "degraded", "error"
	Checks map[string]string `json:"checks"` // component → "ok"/"error"
}

// Healthy reports whether every component is up.
func (h HealthStatus) Healthy() bool { return h.Status == "ok" }

// Filter is a tag match condition.
type Filter struct {
	Key   string
	Value string
}

// Range bounds a numeric field. Nil bounds are open.
type Range struct {
	Key string
	GT  *float64
	GTE *float64
	LT  *float64
	LTE *float64
}

type recordList struct {
	Records []Record `json:"records"`
}

type batchRequest struct {
	IDs []string `json:"ids"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
