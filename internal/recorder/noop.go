package recorder

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRatios(_ *RatioSnapshot) error { return nil }
func (n *NoopRecorder) RecordVolume(_ *VolumeSnapshot) error { return nil }
func (n *NoopRecorder) Close() error                         { return nil }
