package valuation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/appleyytsai/Dashboard/internal/cache"
	"github.com/appleyytsai/Dashboard/internal/calculator"
	"github.com/appleyytsai/Dashboard/internal/collector"
	"github.com/appleyytsai/Dashboard/internal/metrics"
	"github.com/appleyytsai/Dashboard/internal/model"
	"github.com/rs/zerolog/log"
)

// DefaultWindow approximates five years of quarterly reports.
const DefaultWindow = 20

// ErrUnavailable marks a ticker for which no ratio table could be produced.
var ErrUnavailable = errors.New("ratio data unavailable")

// Engine computes EV/EBITDA tables from a pluggable series source.
type Engine struct {
	Source     collector.SeriesSource
	Store      *cache.Store
	Persist    bool
	WindowSize int
}

// NewEngine creates an Engine. When persist is set, each ticker's table is merged with
// and written back to its ratio cache file in store.
func NewEngine(src collector.SeriesSource, store *cache.Store, window int, persist bool) *Engine {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Engine{Source: src, Store: store, Persist: persist && store != nil, WindowSize: window}
}

// Compute produces the full ratio table for ticker, or an error wrapping ErrUnavailable.
func (e *Engine) Compute(ctx context.Context, ticker string) (*model.RatioTable, error) {
	ev, err := e.Source.FetchEnterpriseValues(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, ticker, err)
	}
	ebitda, err := e.Source.FetchEBITDA(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, ticker, err)
	}

	rows := calculator.JoinOnDate(ev, ebitda)

	if e.Persist {
		prior, err := e.Store.ReadRatios(ticker)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: read cache: %w", ErrUnavailable, ticker, err)
		}
		rows = MergeRows(rows, prior)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s: no dates shared by enterprise value and ebitda", ErrUnavailable, ticker)
	}

	table := BuildTable(ticker, rows, e.WindowSize)

	if e.Persist {
		if err := e.Store.WriteRatios(table); err != nil {
			return nil, fmt.Errorf("%w: %s: write cache: %w", ErrUnavailable, ticker, err)
		}
	}
	return table, nil
}

// BuildTable computes ratio, the trailing window and a label for every row.
// rows must be ordered newest first. Every row is labelled against the same window,
// taken from the window most recent rows that have a ratio.
func BuildTable(ticker string, rows []calculator.JoinedRow, window int) *model.RatioTable {
	ratios := make([]model.Optional, len(rows))
	for i, r := range rows {
		ratios[i] = calculator.Ratio(r.EnterpriseValue, r.EBITDA)
	}
	stats := calculator.TrailingWindow(calculator.RecentRatios(ratios, window))

	records := make([]model.RatioRecord, len(rows))
	for i, r := range rows {
		records[i] = model.RatioRecord{
			Ticker:          ticker,
			Date:            r.Date,
			EnterpriseValue: r.EnterpriseValue,
			EBITDA:          r.EBITDA,
			Ratio:           ratios[i],
			Label:           calculator.Classify(ratios[i], stats),
			Window:          stats,
		}
	}
	return &model.RatioTable{Ticker: ticker, Records: records, Window: stats}
}

// MergeRows unions freshly joined rows with previously cached records and drops
// exact duplicates of (date, enterprise value, ebitda). Derived columns of the cached
// records are ignored; they are recomputed. The result is ordered newest first.
func MergeRows(fresh []calculator.JoinedRow, prior []model.RatioRecord) []calculator.JoinedRow {
	type key struct {
		date       string
		ev, ebitda uint64
	}
	seen := make(map[key]struct{}, len(fresh)+len(prior))
	out := make([]calculator.JoinedRow, 0, len(fresh)+len(prior))
	add := func(r calculator.JoinedRow) {
		k := key{r.Date.Format(model.DateLayout), valueBits(r.EnterpriseValue), valueBits(r.EBITDA)}
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	for _, r := range fresh {
		add(r)
	}
	for _, p := range prior {
		add(calculator.JoinedRow{Date: p.Date, EnterpriseValue: p.EnterpriseValue, EBITDA: p.EBITDA})
	}
	calculator.SortNewestFirst(out)
	return out
}

// valueBits keys a value exactly; every unreported value shares one key.
func valueBits(v float64) uint64 {
	if math.IsNaN(v) {
		return math.Float64bits(math.NaN())
	}
	return math.Float64bits(v)
}

// Skip is a ticker dropped from a batch and the reason.
type Skip struct {
	Ticker string
	Err    error
}

// BatchResult holds the tables that computed and the tickers that did not.
type BatchResult struct {
	Tables  []*model.RatioTable
	Skipped []Skip
}

// RunBatch computes each ticker in order. A failing ticker is logged and skipped;
// the batch only stops early when ctx is done.
func (e *Engine) RunBatch(ctx context.Context, tickers []string) *BatchResult {
	res := &BatchResult{}
	for _, t := range tickers {
		if ctx.Err() != nil {
			res.Skipped = append(res.Skipped, Skip{Ticker: t, Err: ctx.Err()})
			continue
		}
		table, err := e.Compute(ctx, t)
		if err != nil {
			log.Error().Err(err).Str("ticker", t).Str("source", e.Source.Name()).Msg("skipping ticker")
			metrics.TickerSkipped.WithLabelValues(t).Inc()
			res.Skipped = append(res.Skipped, Skip{Ticker: t, Err: err})
			continue
		}
		log.Info().Str("ticker", t).Int("rows", len(table.Records)).Msg("ratio table computed")
		res.Tables = append(res.Tables, table)
	}
	return res
}

// Latest reduces the concatenated tables to the newest record per ticker,
// ordered by ticker.
func Latest(tables []*model.RatioTable) []model.RatioRecord {
	var all []model.RatioRecord
	for _, t := range tables {
		all = append(all, t.Records...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Date.After(all[j].Date) })

	seen := make(map[string]bool)
	var out []model.RatioRecord
	for _, r := range all {
		if seen[r.Ticker] {
			continue
		}
		seen[r.Ticker] = true
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}
