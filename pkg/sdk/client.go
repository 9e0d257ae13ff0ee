package blendex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "blendex-go"
	maxErrorBody     = 64 << 10
)

// Client is the blendex SDK entry point. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	apiKey     string
	userAgent  string
	obs        *observer
}

// New creates a Client for the server at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{timeout: defaultTimeout, userAgent: defaultUserAgent}
	for _, o := range opts {
		o.apply(cfg)
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("blendex: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("blendex: base url %q must be http or https", baseURL)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{
			Timeout:   cfg.timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, fmt.Errorf("blendex: init observer: %w", err)
	}

	return &Client{
		baseURL:    u,
		httpClient: hc,
		apiKey:     cfg.apiKey,
		userAgent:  cfg.userAgent,
		obs:        obs,
	}, nil
}

// Search returns a fluent builder for a blended search.
func (c *Client) Search() *SearchBuilder {
	return &SearchBuilder{client: c, params: url.Values{}}
}

// Get retrieves one record by ID. The server checks the primary backend first.
// params are forwarded to the backends.
func (c *Client) Get(ctx context.Context, id string, params url.Values) (rec Record, err error) {
	defer func(start time.Time) { c.obs.observe("get", start, err) }(time.Now())

	if id == "" {
		return Record{}, fmt.Errorf("get: %w: empty id", ErrInvalidRequest)
	}
	req, err := c.newRequest(ctx, http.MethodGet, params, nil, "api", "v1", "records", url.PathEscape(id))
	if err != nil {
		return Record{}, fmt.Errorf("get %s: %w", id, err)
	}
	if err := c.doJSON(req, &rec); err != nil {
		return Record{}, fmt.Errorf("get %s: %w", id, err)
	}
	return rec, nil
}

// GetBatch retrieves several records. Missing IDs are skipped.
func (c *Client) GetBatch(ctx context.Context, ids []string, params url.Values) (recs []Record, err error) {
	defer func(start time.Time) { c.obs.observe("get_batch", start, err) }(time.Now())

	if len(ids) == 0 {
		return nil, fmt.Errorf("get batch: %w: no ids", ErrInvalidRequest)
	}
	req, err := c.newRequest(ctx, http.MethodPost, params, batchRequest{IDs: ids}, "api", "v1", "records", "batch")
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	var out recordList
	if err := c.doJSON(req, &out); err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return out.Records, nil
}

// Health returns the aggregated server health. A degraded or failing server
// answers 503; its report is still returned without error.
func (c *Client) Health(ctx context.Context) (hs HealthStatus, err error) {
	defer func(start time.Time) { c.obs.observe("health", start, err) }(time.Now())

	req, err := c.newRequest(ctx, http.MethodGet, nil, nil, "health")
	if err != nil {
		return HealthStatus{}, fmt.Errorf("health: %w", err)
	}
	if err := c.doJSON(req, &hs, http.StatusServiceUnavailable); err != nil {
		return HealthStatus{}, fmt.Errorf("health: %w", err)
	}
	return hs, nil
}

func (c *Client) search(ctx context.Context, q url.Values) (res *SearchResult, err error) {
	defer func(start time.Time) { c.obs.observe("search", start, err) }(time.Now())

	req, err := c.newRequest(ctx, http.MethodGet, q, nil, "api", "v1", "search")
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	res = &SearchResult{}
	if err := c.doJSON(req, res); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return res, nil
}

// newRequest builds a request against baseURL. Path elements must be escaped.
func (c *Client) newRequest(
	ctx context.Context, method string, q url.Values, body any, elem ...string,
) (*http.Request, error) {
	u := c.baseURL.JoinPath(elem...)
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

// doJSON sends req and decodes a 2xx body (or one of alsoOK) into out.
// Any other status becomes an *APIError.
func (c *Client) doJSON(req *http.Request, out any, alsoOK ...int) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	for _, s := range alsoOK {
		ok = ok || resp.StatusCode == s
	}
	if !ok {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body errorBody
	if json.Unmarshal(raw, &body) == nil && body.Code != "" {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
