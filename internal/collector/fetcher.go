package collector

import (
	"context"
	"errors"

	"github.com/appleyytsai/Dashboard/internal/model"
)

var (
	// ErrNotList is returned when a provider or cache yields something other than a list.
	ErrNotList = errors.New("response is not a list")
	// ErrMalformed is returned when a record lacks a required field.
	ErrMalformed = errors.New("malformed record")
	// ErrMissingVolume is returned when price history carries no volume column.
	ErrMissingVolume = errors.New("volume column not found")
	// ErrNoData is returned when a provider answers with an empty result.
	ErrNoData = errors.New("no data returned")
)

// SeriesSource yields the enterprise-value and EBITDA series for a ticker.
type SeriesSource interface {
	FetchEnterpriseValues(ctx context.Context, ticker string) ([]model.MetricPoint, error)
	FetchEBITDA(ctx context.Context, ticker string) ([]model.MetricPoint, error)
	Name() string
}

// BarFetcher yields daily price history for a symbol over a lookback period such as "3mo".
type BarFetcher interface {
	FetchDailyBars(ctx context.Context, symbol, period string) (*model.BarSeries, error)
	Name() string
}
