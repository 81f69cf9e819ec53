package cache

import (
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"github.com/appleyytsai/Dashboard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, _ := time.Parse(model.DateLayout, s)
	return t
}

func TestSeriesRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())
	in := []model.MetricPoint{
		{Ticker: "AAPL", Date: day("2024-09-28"), Value: 3495160000000},
		{Ticker: "AAPL", Date: day("2023-09-30"), Value: 2.7e12 + 0.25},
	}
	require.NoError(t, s.WriteSeries("AAPL", model.KindEnterpriseValue, in))

	out, err := s.ReadSeries("AAPL", model.KindEnterpriseValue)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSeries_UnreportedValueIsNA(t *testing.T) {
	s := NewStore(t.TempDir())
	in := []model.MetricPoint{
		{Ticker: "TSLA", Date: day("2024-12-31"), Value: 13e9},
		{Ticker: "TSLA", Date: day("2023-12-31"), Value: math.NaN()},
	}
	require.NoError(t, s.WriteSeries("TSLA", model.KindEBITDA, in))

	raw, err := os.ReadFile(s.SeriesPath("TSLA", model.KindEBITDA))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "2023-12-31,N/A")

	out, err := s.ReadSeries("TSLA", model.KindEBITDA)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 13e9, out[0].Value)
	assert.True(t, math.IsNaN(out[1].Value))
}

func TestRatios_UnreportedEBITDARoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())
	table := &model.RatioTable{
		Ticker: "TSLA",
		Records: []model.RatioRecord{
			{Ticker: "TSLA", Date: day("2023-12-31"), EnterpriseValue: 790e9, EBITDA: math.NaN(),
				Ratio: model.None(), Label: model.LabelNA},
		},
	}
	require.NoError(t, s.WriteRatios(table))

	out, err := s.ReadRatios("TSLA")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 790e9, out[0].EnterpriseValue)
	assert.True(t, math.IsNaN(out[0].EBITDA))
	assert.Equal(t, model.LabelNA, out[0].Label)
}

func TestReadSeries_Missing(t *testing.T) {
	s := NewStore(t.TempDir())
	_, err := s.ReadSeries("MSFT", model.KindEBITDA)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestReadSeries_WrongHeader(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, os.WriteFile(s.SeriesPath("MSFT", model.KindEBITDA), []byte("when,what\n2024-01-01,1\n"), 0o644))
	_, err := s.ReadSeries("MSFT", model.KindEBITDA)
	assert.ErrorIs(t, err, ErrShape)
}

func TestRatiosRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())

	none, err := s.ReadRatios("NVDA")
	require.NoError(t, err)
	assert.Nil(t, none)

	w := model.WindowStats{Median: 20.5, High: 31.25, Low: 10, Available: true}
	table := &model.RatioTable{
		Ticker: "NVDA",
		Window: w,
		Records: []model.RatioRecord{
			{Ticker: "NVDA", Date: day("2025-01-26"), EnterpriseValue: 3125, EBITDA: 100, Ratio: model.Some(31.25), Label: model.LabelHigh, Window: w},
			{Ticker: "NVDA", Date: day("2024-01-28"), EnterpriseValue: 500, EBITDA: 0, Ratio: model.None(), Label: model.LabelNA, Window: w},
		},
	}
	require.NoError(t, s.WriteRatios(table))

	got, err := s.ReadRatios("NVDA")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, table.Records[0], got[0])
	assert.Equal(t, model.LabelNA, got[1].Label)
	assert.False(t, got[1].Ratio.Valid)

	raw, err := os.ReadFile(s.RatioPath("NVDA"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "NVDA,2024-01-28,500,0,N/A,N/A,20.5,31.25,10")
}

func TestWriteRatios_EmptyWindowRendersNA(t *testing.T) {
	s := NewStore(t.TempDir())
	table := &model.RatioTable{
		Ticker:  "TSLA",
		Records: []model.RatioRecord{{Ticker: "TSLA", Date: day("2024-12-31"), EnterpriseValue: 1, EBITDA: -5, Ratio: model.None(), Label: model.LabelNA}},
	}
	require.NoError(t, s.WriteRatios(table))
	raw, err := os.ReadFile(s.RatioPath("TSLA"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "TSLA,2024-12-31,1,-5,N/A,N/A,N/A,N/A,N/A")
}
