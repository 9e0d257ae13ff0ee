package blendex

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, u := range []string{"", "localhost:8080", "ftp://x", "http://a b"} {
		if _, err := New(u); err == nil {
			t.Errorf("New(%q): expected error", u)
		}
	}
}

func TestSearch_EncodesQuery(t *testing.T) {
	var got url.Values
	var auth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		got = r.URL.Query()
		auth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]any{
			"total": 3, "offset": 0, "limit": 2, "primary_count": 1, "secondary_count": 1,
			"records": []map[string]any{
				{"id": "p1", "title": "Dune", "score": 1.5, "source": "primary", "fields": map[string][]string{"year": {"1965"}}},
				{"id": "s1", "title": "Dune (film)", "source": "secondary"},
			},
			"facets": map[string][]map[string]any{"format": {{"value": "0/Book/", "count": 2}}},
		})
	}, WithAPIKey("secret"))

	lo := 1960.0
	res, err := c.Search().
		Query("dune").
		Field("title").
		Offset(0).
		Limit(2).
		Where("format", "0/Book/").
		Exclude("language", "fin").
		Any("author", "Herbert").
		Range(Range{Key: "year", GT: &lo}).
		Param("secondary.sort", "title").
		Do(context.Background())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if auth != "Bearer secret" {
		t.Errorf("Authorization = %q", auth)
	}
	want := map[string]string{
		"q": "dune", "field": "title", "limit": "2",
		"filter": "format:0/Book/", "exclude": "language:fin", "any": "author:Herbert",
		"range": "year:gt:1960", "secondary.sort": "title",
	}
	for k, v := range want {
		if got.Get(k) != v {
			t.Errorf("%s = %q, want %q", k, got.Get(k), v)
		}
	}
	if got.Has("offset") {
		t.Error("zero offset should not be sent")
	}

	if res.Total != 3 || res.PrimaryCount != 1 || res.SecondaryCount != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Records) != 2 || res.Records[0].Field("year") != "1965" || res.Records[1].Source != "secondary" {
		t.Errorf("records = %+v", res.Records)
	}
	if fc := res.Facets["format"]; len(fc) != 1 || fc[0].Count != 2 {
		t.Errorf("facets = %+v", res.Facets)
	}
}

func TestSearchBuilder_BetweenAndCountOnly(t *testing.T) {
	c, err := New("http://localhost:8080")
	if err != nil {
		t.Fatal(err)
	}
	v := c.Search().Between("year", 1965, 1970.5).Limit(0).Values()
	if v.Get("limit") != "0" {
		t.Errorf("limit = %q, want explicit 0", v.Get("limit"))
	}
	ranges := v["range"]
	if len(ranges) != 2 || ranges[0] != "year:gte:1965" || ranges[1] != "year:lte:1970.5" {
		t.Errorf("range = %v", ranges)
	}
}

func TestSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
		want   error
	}{
		{"validation", 400, map[string]string{"code": "validation_failed", "message": "bad"}, ErrInvalidRequest},
		{"unauthorized", 401, map[string]string{"code": "unauthorized", "message": "no"}, ErrUnauthorized},
		{"rate limited", 429, map[string]string{"code": "rate_limited", "message": "slow"}, ErrRateLimited},
		{"backend", 502, map[string]string{"code": "backend_unavailable", "message": "down"}, ErrBackendUnavailable},
		{"embedding", 502, map[string]string{"code": "embedding_provider_error", "message": "x"}, ErrEmbeddingProviderError},
		{"plain gateway", 504, "upstream timeout", ErrBackendUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				if s, ok := tt.body.(string); ok {
					w.WriteHeader(tt.status)
					_, _ = w.Write([]byte(s))
					return
				}
				writeJSON(w, tt.status, tt.body)
			})
			_, err := c.Search().Query("x").Do(context.Background())
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != tt.status {
				t.Errorf("APIError = %+v", apiErr)
			}
		})
	}
}

func TestGet(t *testing.T) {
	var params url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		params = r.URL.Query()
		switch r.URL.Path {
		case "/api/v1/records/p1":
			writeJSON(w, http.StatusOK, map[string]any{"id": "p1", "title": "Dune", "source": "primary"})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"code": "not_found", "message": "record not found"})
		}
	})

	rec, err := c.Get(context.Background(), "p1", url.Values{"lng": {"fi"}})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.ID != "p1" || rec.Title != "Dune" || rec.Source != "primary" {
		t.Errorf("record = %+v", rec)
	}
	if params.Get("lng") != "fi" {
		t.Errorf("params = %v", params)
	}

	_, err = c.Get(context.Background(), "missing", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	_, err = c.Get(context.Background(), "", nil)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("empty id err = %v", err)
	}
}

func TestGetBatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/records/batch" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var req batchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		recs := make([]Record, 0, len(req.IDs))
		for _, id := range req.IDs {
			if id != "gone" {
				recs = append(recs, Record{ID: id})
			}
		}
		writeJSON(w, http.StatusOK, recordList{Records: recs})
	})

	recs, err := c.GetBatch(context.Background(), []string{"p2", "gone", "s1"}, nil)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if len(recs) != 2 || recs[0].ID != "p2" || recs[1].ID != "s1" {
		t.Errorf("records = %+v", recs)
	}

	if _, err := c.GetBatch(context.Background(), nil, nil); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("empty batch err = %v", err)
	}
}

func TestHealth(t *testing.T) {
	status := http.StatusOK
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		body := HealthStatus{Status: "ok", Checks: map[string]string{"primary": "ok", "secondary": "ok"}}
		if status != http.StatusOK {
			body = HealthStatus{Status: "degraded", Checks: map[string]string{"primary": "ok", "secondary": "error"}}
		}
		writeJSON(w, status, body)
	})

	hs, err := c.Health(context.Background())
	if err != nil || !hs.Healthy() {
		t.Fatalf("health = %+v, err = %v", hs, err)
	}

	status = http.StatusServiceUnavailable
	hs, err = c.Health(context.Background())
	if err != nil {
		t.Fatalf("degraded should not error: %v", err)
	}
	if hs.Healthy() || hs.Checks["secondary"] != "error" {
		t.Errorf("health = %+v", hs)
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(base)
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Search().Do(context.Background())
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("err = %v, want ErrBackendUnavailable", err)
	}
}

func TestClient_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"code": "not_found", "message": "x"})
	}, WithPrometheus(reg), WithLogger(slog.New(slog.DiscardHandler)))

	_, _ = c.Get(context.Background(), "x", nil)
	_, _ = c.Search().Do(context.Background())

	m, err := newSDKMetrics(reg)
	if err != nil {
		t.Fatalf("re-register should reuse collectors: %v", err)
	}
	if v := testutil.ToFloat64(m.operations.WithLabelValues("get", "not_found")); v != 1 {
		t.Errorf("get not_found = %f, want 1", v)
	}
	if v := testutil.ToFloat64(m.operations.WithLabelValues("search", "not_found")); v != 1 {
		t.Errorf("search not_found = %f, want 1", v)
	}
}
