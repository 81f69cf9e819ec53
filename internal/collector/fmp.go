package collector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/appleyytsai/Dashboard/internal/metrics"
	"github.com/appleyytsai/Dashboard/internal/model"
	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

// DefaultFMPBaseURL is the Financial Modeling Prep API host.
const DefaultFMPBaseURL = "https://financialmodelingprep.com"

// FMPClient implements SeriesSource using the Financial Modeling Prep REST API.
type FMPClient struct {
	BaseURL     string
	APIKey      string
	IncomeLimit int
	Client      *http.Client
	limiter     *rate.Limiter
}

// FMPOption configures an FMPClient.
type FMPOption func(*FMPClient)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) FMPOption {
	return func(f *FMPClient) { f.Client = c }
}

// WithRateLimit paces requests to rps requests per second.
func WithRateLimit(rps float64) FMPOption {
	return func(f *FMPClient) {
		if rps > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithIncomeLimit sets how many income statements are requested.
func WithIncomeLimit(n int) FMPOption {
	return func(f *FMPClient) { f.IncomeLimit = n }
}

// NewFMPClient creates a client with a bounded request timeout and optional proxy.
func NewFMPClient(baseURL, apiKey string, timeout time.Duration, proxyURL string, opts ...FMPOption) *FMPClient {
	if baseURL == "" {
		baseURL = DefaultFMPBaseURL
	}
	f := &FMPClient{
		BaseURL:     baseURL,
		APIKey:      apiKey,
		IncomeLimit: 5,
		Client:      newHTTPClient(timeout, proxyURL),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FMPClient) Name() string { return "fmp" }

// FetchEnterpriseValues returns the enterprise value per reporting date.
func (f *FMPClient) FetchEnterpriseValues(ctx context.Context, ticker string) ([]model.MetricPoint, error) {
	endpoint := fmt.Sprintf("%s/api/v3/enterprise-values/%s?apikey=%s",
		f.BaseURL, url.PathEscape(ticker), url.QueryEscape(f.APIKey))
	points, err := f.fetchPoints(ctx, ticker, endpoint, "enterpriseValue")
	if err != nil {
		return nil, fmt.Errorf("enterprise values for %s: %w", ticker, err)
	}
	return points, nil
}

// FetchEBITDA returns EBITDA from the most recent income statements.
func (f *FMPClient) FetchEBITDA(ctx context.Context, ticker string) ([]model.MetricPoint, error) {
	endpoint := fmt.Sprintf("%s/api/v3/income-statement/%s?limit=%d&apikey=%s",
		f.BaseURL, url.PathEscape(ticker), f.IncomeLimit, url.QueryEscape(f.APIKey))
	points, err := f.fetchPoints(ctx, ticker, endpoint, "ebitda")
	if err != nil {
		return nil, fmt.Errorf("income statements for %s: %w", ticker, err)
	}
	return points, nil
}

func (f *FMPClient) fetchPoints(ctx context.Context, ticker, endpoint, field string) ([]model.MetricPoint, error) {
	raws, err := f.fetchList(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	points := make([]model.MetricPoint, 0, len(raws))
	for i, raw := range raws {
		var rec map[string]interface{}
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("record %d: %w: %v", i, ErrMalformed, err)
		}
		p, err := toPoint(ticker, i, rec, field)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

// toPoint requires the date and value keys. A value reported as null is kept as
// an unreported point (NaN) so the row survives and renders N/A downstream.
func toPoint(ticker string, idx int, rec map[string]interface{}, field string) (model.MetricPoint, error) {
	date, _ := rec["date"].(string)
	if date == "" {
		return model.MetricPoint{}, fmt.Errorf("record %d: %w: missing date", idx, ErrMalformed)
	}
	d, err := parseDate(date)
	if err != nil {
		return model.MetricPoint{}, fmt.Errorf("record %d: %w: date %q", idx, ErrMalformed, date)
	}
	raw, ok := rec[field]
	if !ok {
		return model.MetricPoint{}, fmt.Errorf("record %d: %w: missing %s", idx, ErrMalformed, field)
	}
	value := math.NaN()
	switch v := raw.(type) {
	case nil:
	case float64:
		value = v
	default:
		return model.MetricPoint{}, fmt.Errorf("record %d: %w: %s is %T", idx, ErrMalformed, field, raw)
	}
	return model.MetricPoint{Ticker: ticker, Date: d, Value: value}, nil
}

// parseDate accepts plain dates and the "2006-01-02 15:04:05" form some endpoints use.
func parseDate(s string) (time.Time, error) {
	if len(s) > len(model.DateLayout) {
		s = s[:len(model.DateLayout)]
	}
	return time.Parse(model.DateLayout, s)
}

func (f *FMPClient) fetchList(ctx context.Context, endpoint string) (raws []json.RawMessage, err error) {
	defer func() { metrics.ObserveFetch(f.Name(), err) }()

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, redact(err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fmp fetch: %w", redact(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fmp read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fmp: status %d, body: %s", resp.StatusCode, truncate(body, 200))
	}
	return decodeList(body)
}

// decodeList splits a JSON array into its elements, rejecting any other shape.
func decodeList(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: %s", ErrNotList, truncate(trimmed, 200))
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotList, err)
	}
	return raws, nil
}
