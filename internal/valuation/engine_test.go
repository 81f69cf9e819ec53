package valuation

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/appleyytsai/Dashboard/internal/cache"
	"github.com/appleyytsai/Dashboard/internal/collector"
	"github.com/appleyytsai/Dashboard/internal/model"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func points(ticker string, kv ...interface{}) []model.MetricPoint {
	var out []model.MetricPoint
	for i := 0; i < len(kv); i += 2 {
		out = append(out, model.MetricPoint{Ticker: ticker, Date: day(kv[i].(string)), Value: kv[i+1].(float64)})
	}
	return out
}

func appleSource() *collector.MockSource {
	return &collector.MockSource{
		EV: map[string][]model.MetricPoint{
			"AAPL": points("AAPL",
				"2024-09-28", 3500.0,
				"2023-09-30", 2800.0,
				"2022-09-24", 2400.0,
				"2021-09-25", 2500.0,
				"2020-09-26", 2000.0,
			),
		},
		EBITDA: map[string][]model.MetricPoint{
			"AAPL": points("AAPL",
				"2024-09-28", 140.0,
				"2023-09-30", 125.0,
				"2022-09-24", 130.0,
				"2021-09-25", 120.0,
				"2019-09-28", 80.0,
			),
		},
	}
}

func TestCompute_JoinAndRatio(t *testing.T) {
	e := NewEngine(appleSource(), nil, DefaultWindow, false)
	table, err := e.Compute(context.Background(), "AAPL")
	require.NoError(t, err)

	require.Len(t, table.Records, 4, "2020 EV and 2019 EBITDA have no partner")
	for _, r := range table.Records {
		require.True(t, r.Ratio.Valid)
		assert.Equal(t, r.EnterpriseValue/r.EBITDA, r.Ratio.Value)
		assert.NotEqual(t, day("2020-09-26"), r.Date)
		assert.NotEqual(t, day("2019-09-28"), r.Date)
	}
	assert.Equal(t, day("2024-09-28"), table.Records[0].Date, "newest first")
	assert.Equal(t, 25.0, table.Records[0].Ratio.Value)
}

func TestCompute_ClassificationConsistent(t *testing.T) {
	e := NewEngine(appleSource(), nil, DefaultWindow, false)
	table, err := e.Compute(context.Background(), "AAPL")
	require.NoError(t, err)

	w := table.Window
	require.True(t, w.Available)
	assert.Equal(t, 25.0, w.High)
	assert.InDelta(t, 2400.0/130.0, w.Low, 1e-12)

	for _, r := range table.Records {
		switch {
		case r.Ratio.Value >= w.High:
			assert.Equal(t, model.LabelHigh, r.Label)
		case r.Ratio.Value <= w.Low:
			assert.Equal(t, model.LabelLow, r.Label)
		default:
			assert.Equal(t, model.LabelMedium, r.Label)
		}
		assert.Equal(t, w, r.Window, "every row shares the current window")
	}
	assert.Equal(t, model.LabelHigh, table.Records[0].Label, "current row defines the high")
}

func TestBuildTable_WindowUsesMostRecentRows(t *testing.T) {
	var rows []calcRow
	start := day("2000-03-31")
	for i := 0; i < 25; i++ {
		rows = append(rows, calcRow{Date: start.AddDate(0, 3*i, 0), EnterpriseValue: float64(100 + i), EBITDA: 10})
	}
	// the oldest quarter carries an outlier that falls outside the 20-row window
	rows[0].EnterpriseValue = 10000
	reverse(rows)

	table := BuildTable("MSFT", rows, 20)
	assert.Equal(t, 20, table.Window.Size)
	assert.Equal(t, 12.4, table.Window.High)
	assert.Equal(t, 10.5, table.Window.Low)

	oldest := table.Records[len(table.Records)-1]
	assert.Equal(t, 1000.0, oldest.Ratio.Value)
	assert.Equal(t, model.LabelHigh, oldest.Label, "historical rows are labelled against the current window")
}

func TestBuildTable_NoComputableRatios(t *testing.T) {
	rows := []calcRow{
		{Date: day("2024-12-31"), EnterpriseValue: 500, EBITDA: 0},
		{Date: day("2023-12-31"), EnterpriseValue: 400, EBITDA: -20},
	}
	table := BuildTable("TSLA", rows, 20)
	assert.False(t, table.Window.Available)
	for _, r := range table.Records {
		assert.False(t, r.Ratio.Valid)
		assert.Equal(t, model.LabelNA, r.Label)
		assert.Equal(t, model.NotAvailable, r.Window.MedianValue().Format(2))
	}
}

func TestCompute_NullEBITDAFromProviderKeepsTicker(t *testing.T) {
	fmp := collector.NewFMPClient("https://fmp.test", "KEY", 5*time.Second, "")
	httpmock.ActivateNonDefault(fmp.Client)
	t.Cleanup(httpmock.DeactivateAndReset)
	httpmock.RegisterResponder("GET", "https://fmp.test/api/v3/enterprise-values/TSLA",
		httpmock.NewStringResponder(200, `[
			{"date":"2024-12-31","enterpriseValue":1300000000000},
			{"date":"2023-12-31","enterpriseValue":790000000000},
			{"date":"2022-12-31","enterpriseValue":390000000000},
			{"date":"2021-12-31","enterpriseValue":1060000000000},
			{"date":"2020-12-31","enterpriseValue":670000000000}
		]`))
	httpmock.RegisterResponder("GET", "https://fmp.test/api/v3/income-statement/TSLA",
		httpmock.NewStringResponder(200, `[
			{"date":"2024-12-31","ebitda":13000000000},
			{"date":"2023-12-31","ebitda":null},
			{"date":"2022-12-31","ebitda":17000000000},
			{"date":"2021-12-31","ebitda":9600000000},
			{"date":"2020-12-31","ebitda":4200000000}
		]`))

	store := cache.NewStore(t.TempDir())
	e := NewEngine(fmp, store, DefaultWindow, true)
	table, err := e.Compute(context.Background(), "TSLA")
	require.NoError(t, err)
	require.Len(t, table.Records, 5)

	missing := table.Records[1]
	assert.Equal(t, "2023-12-31", missing.Date.Format(model.DateLayout))
	assert.False(t, missing.Ratio.Valid)
	assert.Equal(t, model.LabelNA, missing.Label)
	assert.Equal(t, 4, table.Window.Size, "only computable ratios enter the window")
	assert.Equal(t, model.LabelMedium, table.Records[0].Label)

	// the N/A row survives the cache round trip without duplicating
	again, err := e.Compute(context.Background(), "TSLA")
	require.NoError(t, err)
	assert.Len(t, again.Records, 5)
	assert.Equal(t, model.LabelNA, again.Records[1].Label)
}

func TestCompute_SourceFailureIsUnavailable(t *testing.T) {
	src := &collector.MockSource{Err: map[string]error{"META": collector.ErrNotList}}
	e := NewEngine(src, nil, DefaultWindow, false)

	table, err := e.Compute(context.Background(), "META")
	assert.Nil(t, table)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, collector.ErrNotList)
}

func TestCompute_NoOverlapIsUnavailable(t *testing.T) {
	src := &collector.MockSource{
		EV:     map[string][]model.MetricPoint{"AMZN": points("AMZN", "2024-12-31", 1.0)},
		EBITDA: map[string][]model.MetricPoint{"AMZN": points("AMZN", "2023-12-31", 1.0)},
	}
	_, err := NewEngine(src, nil, DefaultWindow, false).Compute(context.Background(), "AMZN")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCompute_CacheModeIsIdempotent(t *testing.T) {
	store := cache.NewStore(t.TempDir())
	src := appleSource()
	require.Empty(t, collector.Sync(context.Background(), src, store, []string{"AAPL"}))

	e := NewEngine(collector.NewCachedSource(store), store, DefaultWindow, true)

	first, err := e.Compute(context.Background(), "AAPL")
	require.NoError(t, err)
	before, err := os.ReadFile(store.RatioPath("AAPL"))
	require.NoError(t, err)

	second, err := e.Compute(context.Background(), "AAPL")
	require.NoError(t, err)
	after, err := os.ReadFile(store.RatioPath("AAPL"))
	require.NoError(t, err)

	assert.Equal(t, string(before), string(after))
	assert.Len(t, second.Records, len(first.Records))
}

func TestCompute_CacheAccumulatesHistory(t *testing.T) {
	store := cache.NewStore(t.TempDir())
	src := appleSource()
	e := NewEngine(src, store, DefaultWindow, true)

	_, err := e.Compute(context.Background(), "AAPL")
	require.NoError(t, err)

	// upstream now only returns the latest income statement
	src.EBITDA["AAPL"] = points("AAPL", "2024-09-28", 140.0)
	table, err := e.Compute(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Len(t, table.Records, 4, "older cached rows survive")
}

func TestMergeRows_DropsExactDuplicatesOnly(t *testing.T) {
	fresh := []calcRow{{Date: day("2024-09-28"), EnterpriseValue: 3500, EBITDA: 140}}
	prior := []model.RatioRecord{
		{Ticker: "AAPL", Date: day("2024-09-28"), EnterpriseValue: 3500, EBITDA: 140, Label: model.LabelLow},
		{Ticker: "AAPL", Date: day("2024-09-28"), EnterpriseValue: 3400, EBITDA: 140},
		{Ticker: "AAPL", Date: day("2023-09-30"), EnterpriseValue: 2800, EBITDA: 125},
	}
	merged := MergeRows(fresh, prior)
	require.Len(t, merged, 3)
	assert.Equal(t, day("2023-09-30"), merged[2].Date)
}

func TestRunBatch_SkipsAndLatest(t *testing.T) {
	src := appleSource()
	src.EV["NVDA"] = points("NVDA", "2025-01-26", 3200.0, "2024-01-28", 1200.0)
	src.EBITDA["NVDA"] = points("NVDA", "2025-01-26", 86.0, "2024-01-28", 35.0)
	src.Err = map[string]error{"META": collector.ErrNotList}

	e := NewEngine(src, nil, DefaultWindow, false)
	res := e.RunBatch(context.Background(), []string{"NVDA", "META", "AAPL"})

	require.Len(t, res.Tables, 2)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "META", res.Skipped[0].Ticker)

	latest := Latest(res.Tables)
	require.Len(t, latest, 2)
	assert.Equal(t, "AAPL", latest[0].Ticker)
	assert.Equal(t, day("2024-09-28"), latest[0].Date)
	assert.Equal(t, "NVDA", latest[1].Ticker)
	assert.Equal(t, day("2025-01-26"), latest[1].Date)
}

func TestRunBatch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := NewEngine(appleSource(), nil, DefaultWindow, false).RunBatch(ctx, []string{"AAPL"})
	assert.Empty(t, res.Tables)
	require.Len(t, res.Skipped, 1)
	assert.ErrorIs(t, res.Skipped[0].Err, context.Canceled)
}
