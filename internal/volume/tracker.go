package volume

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/appleyytsai/Dashboard/internal/calculator"
	"github.com/appleyytsai/Dashboard/internal/collector"
	"github.com/appleyytsai/Dashboard/internal/model"
	"github.com/rs/zerolog/log"
)

// DefaultWindow is the number of sessions in the rolling average.
const DefaultWindow = 5

// ErrNoSessions is returned when no session with non-zero volume remains.
var ErrNoSessions = errors.New("no sessions with recorded volume")

// Tracker produces the cleaned daily volume series for one symbol.
type Tracker struct {
	Fetcher     collector.BarFetcher
	Symbol      string
	Period      string
	Window      int
	Annotations []model.Annotation
}

// NewTracker creates a Tracker.
func NewTracker(f collector.BarFetcher, symbol, period string, window int, annotations []model.Annotation) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{Fetcher: f, Symbol: symbol, Period: period, Window: window, Annotations: annotations}
}

// Track fetches history and builds the report. A missing volume column surfaces
// as collector.ErrMissingVolume and no report is returned.
func (t *Tracker) Track(ctx context.Context) (*model.VolumeReport, error) {
	series, err := t.Fetcher.FetchDailyBars(ctx, t.Symbol, t.Period)
	if err != nil {
		return nil, fmt.Errorf("track %s: %w", t.Symbol, err)
	}
	report, err := Build(series, t.Window)
	if err != nil {
		return nil, fmt.Errorf("track %s: %w", t.Symbol, err)
	}
	report.Annotations = t.Annotations
	log.Info().Str("symbol", t.Symbol).Int("sessions", len(report.Records)).Msg("volume report built")
	return report, nil
}

// Build drops zero-volume sessions, computes the rolling average in chronological
// order and returns the records newest first with their summary.
func Build(series *model.BarSeries, window int) (*model.VolumeReport, error) {
	bars := make([]model.OHLCV, 0, len(series.Bars))
	for _, b := range series.Bars {
		if b.Volume > 0 {
			bars = append(bars, b)
		}
	}
	if len(bars) == 0 {
		return nil, ErrNoSessions
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	vols := make([]float64, len(bars))
	for i, b := range bars {
		vols[i] = b.Volume
	}
	ma, err := calculator.RollingMean(vols, window)
	if err != nil {
		return nil, err
	}

	records := make([]model.VolumeRecord, len(bars))
	for i, b := range bars {
		// newest first
		records[len(bars)-1-i] = model.VolumeRecord{Date: b.Time, Volume: b.Volume, MovingAverage: ma[i]}
	}

	fetched := series.FetchedAt
	if fetched.IsZero() {
		fetched = time.Now()
	}
	return &model.VolumeReport{
		Symbol:    series.Symbol,
		Period:    series.Period,
		Window:    window,
		Records:   records,
		Summary:   Summarize(records, vols),
		FetchedAt: fetched,
	}, nil
}

// Summarize computes the headline numbers. records must be newest first; vols is the
// filtered series the average runs over.
func Summarize(records []model.VolumeRecord, vols []float64) model.VolumeSummary {
	if len(records) == 0 {
		return model.VolumeSummary{Trend: model.TrendFlat}
	}
	s := model.VolumeSummary{
		Latest:  records[0].Volume,
		Average: calculator.Mean(vols),
		Trend:   model.TrendFlat,
	}
	if len(records) < 2 {
		return s
	}
	s.HasPrevious = true
	s.Previous = records[1].Volume
	s.Change = s.Latest - s.Previous
	s.ChangePct = calculator.PercentChange(s.Latest, s.Previous)
	switch {
	case s.Change > 0:
		s.Trend = model.TrendUp
	case s.Change < 0:
		s.Trend = model.TrendDown
	}
	return s
}
