package dashboard

import (
	"fmt"
	"strings"

	"github.com/appleyytsai/Dashboard/internal/model"
	"github.com/appleyytsai/Dashboard/internal/volume"
	"gonum.org/v1/gonum/floats"
)

const (
	chartWidth  = 900.0
	chartHeight = 320.0
	padLeft     = 80.0
	padRight    = 20.0
	padTop      = 20.0
	padBottom   = 40.0
	yTicks      = 4
)

type chartBar struct {
	X, Y, W, H float64
	Date       string
	Volume     string
}

type chartTick struct {
	Y     float64
	Label string
}

type chartMarker struct {
	X     float64
	Label string
}

type chartLabel struct {
	X    float64
	Text string
}

// volumeChart is the precomputed geometry of the inline SVG.
type volumeChart struct {
	Width, Height float64
	Left, Bottom  float64
	Right         float64
	Bars          []chartBar
	MALine        string
	Ticks         []chartTick
	Dates         []chartLabel
	Markers       []chartMarker
	Window        int
}

// buildChart lays out the records oldest first: one bar per session, the rolling
// average as a polyline and a dashed vertical line per annotation inside the range.
func buildChart(rep *model.VolumeReport) *volumeChart {
	n := len(rep.Records)
	if n == 0 {
		return nil
	}
	chrono := make([]model.VolumeRecord, n)
	for i, r := range rep.Records {
		chrono[n-1-i] = r
	}

	vals := make([]float64, 0, 2*n)
	for _, r := range chrono {
		vals = append(vals, r.Volume)
		if r.MovingAverage.Valid {
			vals = append(vals, r.MovingAverage.Value)
		}
	}
	top := floats.Max(vals)
	if top <= 0 {
		top = 1
	}

	plotW := chartWidth - padLeft - padRight
	plotH := chartHeight - padTop - padBottom
	bottom := padTop + plotH
	step := plotW / float64(n)
	y := func(v float64) float64 { return bottom - v/top*plotH }

	c := &volumeChart{
		Width:  chartWidth,
		Height: chartHeight,
		Left:   padLeft,
		Right:  chartWidth - padRight,
		Bottom: bottom,
		Window: rep.Window,
	}

	var line []string
	labelEvery := n/8 + 1
	for i, r := range chrono {
		x := padLeft + float64(i)*step
		c.Bars = append(c.Bars, chartBar{
			X:      x + step*0.1,
			Y:      y(r.Volume),
			W:      step * 0.8,
			H:      bottom - y(r.Volume),
			Date:   r.Date.Format(model.DateLayout),
			Volume: volume.Shares(r.Volume),
		})
		if r.MovingAverage.Valid {
			line = append(line, fmt.Sprintf("%.1f,%.1f", x+step/2, y(r.MovingAverage.Value)))
		}
		if i%labelEvery == 0 {
			c.Dates = append(c.Dates, chartLabel{X: x + step/2, Text: r.Date.Format("Jan 02")})
		}
	}
	c.MALine = strings.Join(line, " ")

	for i := 0; i <= yTicks; i++ {
		v := top * float64(i) / yTicks
		c.Ticks = append(c.Ticks, chartTick{Y: y(v), Label: volume.Shares(v)})
	}

	// Sessions carry exchange-local times; markers are calendar days.
	first, last := chrono[0].Date.Format(model.DateLayout), chrono[n-1].Date.Format(model.DateLayout)
	for _, a := range rep.Annotations {
		mark := a.Date.Format(model.DateLayout)
		if mark < first || mark > last {
			continue
		}
		for i, r := range chrono {
			if r.Date.Format(model.DateLayout) >= mark {
				c.Markers = append(c.Markers, chartMarker{X: padLeft + float64(i)*step + step/2, Label: a.Label})
				break
			}
		}
	}
	return c
}
