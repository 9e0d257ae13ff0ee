package chi

// ErrorCode is a machine-readable error category.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	ErrorCodeBadRequest             ErrorCode = "bad_request"
	ErrorCodeValidationFailed       ErrorCode = "validation_failed"
	ErrorCodeUnauthorized           ErrorCode = "unauthorized"
	ErrorCodeNotFound               ErrorCode = "not_found"
	ErrorCodeRateLimited            ErrorCode = "rate_limited"
	ErrorCodeBackendUnavailable     ErrorCode = "backend_unavailable"
	ErrorCodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	ErrorCodeNotImplemented         ErrorCode = "not_implemented"
	ErrorCodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Record is a single search hit.
type Record struct {
	ID     string              `json:"id"`
	Title  string              `json:"title"`
	Score  float64             `json:"score"`
	Source string              `json:"source,omitempty"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// FacetCount is one facet value with its record count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// SearchResponse is a blended result window.
type SearchResponse struct {
	Total          int                     `json:"total"`
	Offset         int                     `json:"offset"`
	Limit          int                     `json:"limit"`
	PrimaryCount   int                     `json:"primary_count"`
	SecondaryCount int                     `json:"secondary_count"`
	Records        []Record                `json:"records"`
	Facets         map[string][]FacetCount `json:"facets"`
}

// BatchRequest is the body of POST /records/batch.
type BatchRequest struct {
	IDs []string `json:"ids"`
}

// RecordListResponse wraps retrieved records.
type RecordListResponse struct {
	Records []Record `json:"records"`
}

// HealthResponse reports component health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
