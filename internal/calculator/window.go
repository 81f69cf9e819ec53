package calculator

import (
	"sort"

	"github.com/appleyytsai/Dashboard/internal/model"
	"gonum.org/v1/gonum/floats"
)

// TrailingWindow computes median, high and low over values. values is the
// already-selected window; an empty slice yields stats with Available=false.
func TrailingWindow(values []float64) model.WindowStats {
	if len(values) == 0 {
		return model.WindowStats{}
	}
	return model.WindowStats{
		Size:      len(values),
		Median:    Median(values),
		High:      floats.Max(values),
		Low:       floats.Min(values),
		Available: true,
	}
}

// Median returns the middle value, averaging the two middle values for an even count.
// values is not modified.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Classify labels ratio against the window. Ties at either boundary count as
// High or Low. An absent ratio or empty window yields N/A.
func Classify(ratio model.Optional, w model.WindowStats) model.Label {
	if !ratio.Valid || !w.Available {
		return model.LabelNA
	}
	switch {
	case ratio.Value >= w.High:
		return model.LabelHigh
	case ratio.Value <= w.Low:
		return model.LabelLow
	default:
		return model.LabelMedium
	}
}
