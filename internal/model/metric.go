package model

import (
	"math"
	"strconv"
	"time"
)

// DateLayout is the calendar-day layout used by providers and cache files.
const DateLayout = "2006-01-02"

// NotAvailable is rendered wherever a value cannot be computed.
const NotAvailable = "N/A"

// MetricKind names a per-date fundamental series.
type MetricKind string

const (
	KindEnterpriseValue MetricKind = "enterprise_value"
	KindEBITDA          MetricKind = "ebitda"
)

// MetricPoint is one dated observation of a metric for a ticker. Value is NaN when
// the provider reported the date without a value.
type MetricPoint struct {
	Ticker string
	Date   time.Time
	Value  float64
}

// Series is an ordered list of observations for one ticker and metric kind.
type Series struct {
	Ticker string
	Kind   MetricKind
	Points []MetricPoint
}

// Optional is a float that may be absent.
type Optional struct {
	Value float64
	Valid bool
}

// Some wraps a present value.
func Some(v float64) Optional { return Optional{Value: v, Valid: true} }

// None is the absent value.
func None() Optional { return Optional{} }

// Known wraps v, treating NaN and infinities as absent.
func Known(v float64) Optional {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return None()
	}
	return Some(v)
}

// Float returns the value, or NaN when absent.
func (o Optional) Float() float64 {
	if !o.Valid {
		return math.NaN()
	}
	return o.Value
}

// Format renders the value with the given precision, or N/A when absent.
func (o Optional) Format(prec int) string {
	if !o.Valid {
		return NotAvailable
	}
	return strconv.FormatFloat(o.Value, 'f', prec, 64)
}

// ParseOptional is the inverse of Format. N/A and empty strings yield None.
func ParseOptional(s string) (Optional, error) {
	if s == "" || s == NotAvailable {
		return None(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return None(), err
	}
	return Some(v), nil
}
