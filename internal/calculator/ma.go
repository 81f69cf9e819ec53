package calculator

import (
	"errors"

	"github.com/appleyytsai/Dashboard/internal/model"
	"gonum.org/v1/gonum/stat"
)

// CalculateSMA computes the simple moving average of the last period values.
func CalculateSMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	return stat.Mean(values[len(values)-period:], nil), nil
}

// RollingMean returns the trailing simple moving average for every position of
// values, which must be in chronological order. Position i covers values[i-period+1..i];
// the first period-1 positions have no average.
func RollingMean(values []float64, period int) ([]model.Optional, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	out := make([]model.Optional, len(values))
	for i := period - 1; i < len(values); i++ {
		sma, err := CalculateSMA(values[:i+1], period)
		if err != nil {
			return nil, err
		}
		out[i] = model.Some(sma)
	}
	return out, nil
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// PercentChange returns (current-previous)/previous*100, or 0 when previous is 0.
func PercentChange(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}
