package model

import "time"

// Trend is the day-over-day direction of volume.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

// VolumeRecord is one trading session with its rolling average.
// MovingAverage is absent until a full window of sessions is available.
type VolumeRecord struct {
	Date          time.Time
	Volume        float64
	MovingAverage Optional
}

// VolumeSummary holds the headline numbers shown under the chart.
type VolumeSummary struct {
	Latest      float64 `json:"latest"`
	Average     float64 `json:"average"`
	Previous    float64 `json:"previous"`
	Change      float64 `json:"change"`
	ChangePct   float64 `json:"change_pct"`
	HasPrevious bool    `json:"has_previous"`
	Trend       Trend   `json:"trend"`
}

// Annotation marks a dated event on the volume chart.
type Annotation struct {
	Date  time.Time `json:"date"`
	Label string    `json:"label"`
}

// VolumeReport is the cleaned volume series for one symbol, newest first.
type VolumeReport struct {
	Symbol      string
	Period      string
	Window      int
	Records     []VolumeRecord
	Summary     VolumeSummary
	Annotations []Annotation
	FetchedAt   time.Time
}
