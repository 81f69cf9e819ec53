package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/appleyytsai/Dashboard/internal/metrics"
	"github.com/appleyytsai/Dashboard/internal/model"
	"github.com/goccy/go-json"
)

// DefaultYahooBaseURL is the Yahoo Finance chart API host.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements BarFetcher using the Yahoo Finance public chart API.
type YahooFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(timeout time.Duration, proxyURL string) *YahooFetcher {
	return &YahooFetcher{
		BaseURL: DefaultYahooBaseURL,
		Client:  newHTTPClient(timeout, proxyURL),
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooChart is the response structure from Yahoo Finance chart API.
// Volume is decoded separately so an absent column can be told apart from zeros.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol   string `json:"symbol"`
				Timezone string `json:"exchangeTimezoneName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{}  `json:"open"`
					High   []interface{}  `json:"high"`
					Low    []interface{}  `json:"low"`
					Close  []interface{}  `json:"close"`
					Volume *[]interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func at(vals []interface{}, i int) float64 {
	if i < len(vals) {
		return toFloat(vals[i])
	}
	return 0
}

// FetchDailyBars returns daily bars for symbol over period (a Yahoo range such as "3mo"),
// oldest first.
func (f *YahooFetcher) FetchDailyBars(ctx context.Context, symbol, period string) (series *model.BarSeries, err error) {
	defer func() { metrics.ObserveFetch(f.Name(), err) }()

	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		f.BaseURL, url.PathEscape(symbol), url.QueryEscape(period))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, truncate(body, 200))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrNoData)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	if quote.Volume == nil || len(*quote.Volume) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrMissingVolume)
	}
	volume := *quote.Volume

	loc := time.UTC
	if result.Meta.Timezone != "" {
		if l, err := time.LoadLocation(result.Meta.Timezone); err == nil {
			loc = l
		}
	}

	bars := make([]model.OHLCV, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, h, l, c := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // skip null bars (holidays etc.)
		}
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(ts, 0).In(loc),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: at(volume, i),
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return &model.BarSeries{Symbol: symbol, Period: period, Bars: bars, FetchedAt: time.Now()}, nil
}
