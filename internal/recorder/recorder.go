package recorder

import "github.com/appleyytsai/Dashboard/internal/model"

// RatioSnapshot is the latest-per-ticker table of one ratio batch.
type RatioSnapshot struct {
	RunID   string
	Source  string
	Latest  []model.RatioRecord
	Skipped map[string]string // ticker -> reason
}

// VolumeSnapshot is the summary of one volume run.
type VolumeSnapshot struct {
	RunID  string
	Report *model.VolumeReport
}

// Recorder persists run history for later analysis.
type Recorder interface {
	RecordRatios(snap *RatioSnapshot) error
	RecordVolume(snap *VolumeSnapshot) error
	Close() error
}
