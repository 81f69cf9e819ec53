package volume

import (
	"context"
	"testing"
	"time"

	"github.com/appleyytsai/Dashboard/internal/collector"
	"github.com/appleyytsai/Dashboard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bars(vols ...float64) []model.OHLCV {
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]model.OHLCV, len(vols))
	for i, v := range vols {
		out[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Open: 1, High: 1, Low: 1, Close: 1, Volume: v}
	}
	return out
}

func TestTrack_RollingAverageAfterZeroFilter(t *testing.T) {
	tr := NewTracker(&collector.MockBars{Bars: bars(100, 200, 300, 400, 500, 0, 600)}, "9988.HK", "3mo", 5, nil)
	report, err := tr.Track(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Records, 6, "zero-volume day dropped")
	// newest first: 600, 500, 400, 300, 200, 100
	assert.Equal(t, 600.0, report.Records[0].Volume)
	assert.InDelta(t, (200+300+400+500+600)/5.0, report.Records[0].MovingAverage.Value, 1e-9)

	fifth := report.Records[1] // 5th non-zero point chronologically
	require.True(t, fifth.MovingAverage.Valid)
	assert.InDelta(t, 300.0, fifth.MovingAverage.Value, 1e-9)

	for _, r := range report.Records[2:] {
		assert.False(t, r.MovingAverage.Valid, "first four sessions have no average")
	}
	for i := 1; i < len(report.Records); i++ {
		assert.True(t, report.Records[i-1].Date.After(report.Records[i].Date))
	}
}

func TestTrack_Summary(t *testing.T) {
	tr := NewTracker(&collector.MockBars{Bars: bars(100, 200, 300, 400, 500, 0, 600)}, "9988.HK", "3mo", 5, nil)
	report, err := tr.Track(context.Background())
	require.NoError(t, err)

	s := report.Summary
	assert.Equal(t, 600.0, s.Latest)
	assert.InDelta(t, 350.0, s.Average, 1e-9)
	assert.True(t, s.HasPrevious)
	assert.Equal(t, 100.0, s.Change)
	assert.InDelta(t, 20.0, s.ChangePct, 1e-9)
	assert.Equal(t, model.TrendUp, s.Trend)
}

func TestSummarize_ZeroPreviousIsZeroPercent(t *testing.T) {
	recs := []model.VolumeRecord{{Volume: 500}, {Volume: 0}}
	s := Summarize(recs, []float64{500, 0})
	assert.Equal(t, 0.0, s.ChangePct)
	assert.Equal(t, 500.0, s.Change)
}

func TestSummarize_SingleSession(t *testing.T) {
	s := Summarize([]model.VolumeRecord{{Volume: 42}}, []float64{42})
	assert.False(t, s.HasPrevious)
	assert.Equal(t, 42.0, s.Latest)
	assert.Equal(t, model.TrendFlat, s.Trend)
}

func TestTrack_MissingVolumeFails(t *testing.T) {
	tr := NewTracker(&collector.MockBars{Err: collector.ErrMissingVolume}, "9988.HK", "3mo", 5, nil)
	report, err := tr.Track(context.Background())
	assert.Nil(t, report)
	assert.ErrorIs(t, err, collector.ErrMissingVolume)
}

func TestTrack_AllZeroVolume(t *testing.T) {
	tr := NewTracker(&collector.MockBars{Bars: bars(0, 0)}, "9988.HK", "3mo", 5, nil)
	_, err := tr.Track(context.Background())
	assert.ErrorIs(t, err, ErrNoSessions)
}

func TestTrack_CarriesAnnotations(t *testing.T) {
	ann := []model.Annotation{{Date: time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC), Label: "event"}}
	tr := NewTracker(&collector.MockBars{Bars: bars(1, 2)}, "9988.HK", "3mo", 0, ann)
	report, err := tr.Track(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultWindow, report.Window)
	assert.Equal(t, ann, report.Annotations)
}
