package model

import "time"

// SkippedTicker is a ticker that produced no ratio table in a run.
type SkippedTicker struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
}

// Snapshot is everything the dashboard shows from one refresh.
type Snapshot struct {
	RunID       string
	RefreshedAt time.Time
	Source      string
	Ratios      []RatioRecord
	Skipped     []SkippedTicker
	Volume      *VolumeReport
	VolumeErr   string
}
