package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/appleyytsai/Dashboard/internal/cache"
	"github.com/appleyytsai/Dashboard/internal/config"
	"github.com/appleyytsai/Dashboard/internal/model"
)

// CachedSource implements SeriesSource over the flat per-ticker series files.
type CachedSource struct {
	Store *cache.Store
}

// NewCachedSource creates a source reading from store.
func NewCachedSource(store *cache.Store) *CachedSource {
	return &CachedSource{Store: store}
}

func (c *CachedSource) Name() string { return "cache" }

func (c *CachedSource) FetchEnterpriseValues(_ context.Context, ticker string) ([]model.MetricPoint, error) {
	return c.read(ticker, model.KindEnterpriseValue)
}

func (c *CachedSource) FetchEBITDA(_ context.Context, ticker string) ([]model.MetricPoint, error) {
	return c.read(ticker, model.KindEBITDA)
}

func (c *CachedSource) read(ticker string, kind model.MetricKind) ([]model.MetricPoint, error) {
	points, err := c.Store.ReadSeries(ticker, kind)
	if err != nil {
		return nil, fmt.Errorf("cached %s for %s: %w", kind, ticker, err)
	}
	return points, nil
}

// NewSeriesSource selects the series source named by cfg.Ratio.Source.
func NewSeriesSource(cfg *config.Config, store *cache.Store) (SeriesSource, error) {
	switch cfg.Ratio.Source {
	case config.SourceLive:
		return NewFMPClient(cfg.Ratio.BaseURL, cfg.Ratio.APIKey, cfg.HTTP.Timeout, cfg.Proxy,
			WithRateLimit(cfg.Ratio.RateLimit),
			WithIncomeLimit(cfg.Ratio.IncomeLimit),
		), nil
	case config.SourceCache:
		return NewCachedSource(store), nil
	default:
		return nil, fmt.Errorf("unknown ratio source %q", cfg.Ratio.Source)
	}
}

// Sync copies both live series for each ticker into store so a later cache-mode
// run has upstream data. Tickers that fail are returned with their error; the rest
// are written.
func Sync(ctx context.Context, src SeriesSource, store *cache.Store, tickers []string) map[string]error {
	failed := make(map[string]error)
	for _, t := range tickers {
		if err := syncOne(ctx, src, store, t); err != nil {
			failed[t] = err
		}
	}
	return failed
}

func syncOne(ctx context.Context, src SeriesSource, store *cache.Store, ticker string) error {
	ev, err := src.FetchEnterpriseValues(ctx, ticker)
	if err != nil {
		return err
	}
	ebitda, err := src.FetchEBITDA(ctx, ticker)
	if err != nil {
		return err
	}
	if err := store.WriteSeries(ticker, model.KindEnterpriseValue, ev); err != nil {
		return err
	}
	return store.WriteSeries(ticker, model.KindEBITDA, ebitda)
}

// MockSource returns fixed series for development and testing.
type MockSource struct {
	EV     map[string][]model.MetricPoint
	EBITDA map[string][]model.MetricPoint
	Err    map[string]error
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) FetchEnterpriseValues(_ context.Context, ticker string) ([]model.MetricPoint, error) {
	if err := m.Err[ticker]; err != nil {
		return nil, err
	}
	return m.EV[ticker], nil
}

func (m *MockSource) FetchEBITDA(_ context.Context, ticker string) ([]model.MetricPoint, error) {
	if err := m.Err[ticker]; err != nil {
		return nil, err
	}
	return m.EBITDA[ticker], nil
}

// MockBars returns controllable fixed bars for development and testing.
type MockBars struct {
	Bars []model.OHLCV
	Err  error
}

func (m *MockBars) Name() string { return "mock" }

func (m *MockBars) FetchDailyBars(_ context.Context, symbol, period string) (*model.BarSeries, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return &model.BarSeries{Symbol: symbol, Period: period, Bars: m.Bars, FetchedAt: time.Now()}, nil
}
