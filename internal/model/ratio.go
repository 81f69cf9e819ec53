package model

import "time"

// Label classifies a ratio relative to the trailing window.
type Label string

const (
	LabelHigh   Label = "High"
	LabelMedium Label = "Medium"
	LabelLow    Label = "Low"
	LabelNA     Label = NotAvailable
)

// WindowStats summarises the trailing window of ratios.
// When Available is false none of the statistics are meaningful.
type WindowStats struct {
	Size      int
	Median    float64
	High      float64
	Low       float64
	Available bool
}

// MedianValue returns the median, absent when the window is empty.
func (w WindowStats) MedianValue() Optional { return w.opt(w.Median) }

// HighValue returns the window maximum, absent when the window is empty.
func (w WindowStats) HighValue() Optional { return w.opt(w.High) }

// LowValue returns the window minimum, absent when the window is empty.
func (w WindowStats) LowValue() Optional { return w.opt(w.Low) }

func (w WindowStats) opt(v float64) Optional {
	if !w.Available {
		return None()
	}
	return Some(v)
}

// RatioRecord is one joined EV/EBITDA observation.
type RatioRecord struct {
	Ticker          string
	Date            time.Time
	EnterpriseValue float64
	EBITDA          float64
	Ratio           Optional
	Label           Label
	Window          WindowStats
}

// RatioTable is the computed table for one ticker, newest row first.
type RatioTable struct {
	Ticker  string
	Records []RatioRecord
	Window  WindowStats
}

// Latest returns the newest record, or false for an empty table.
func (t *RatioTable) Latest() (RatioRecord, bool) {
	if t == nil || len(t.Records) == 0 {
		return RatioRecord{}, false
	}
	return t.Records[0], true
}
