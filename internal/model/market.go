package model

import "time"

// OHLCV represents a single daily candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// BarSeries holds the raw bars returned by a price history query.
type BarSeries struct {
	Symbol    string
	Period    string
	Bars      []OHLCV
	FetchedAt time.Time
}
