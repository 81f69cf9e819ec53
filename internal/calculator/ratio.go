package calculator

import (
	"math"
	"sort"
	"time"

	"github.com/appleyytsai/Dashboard/internal/model"
)

// JoinedRow is an EV and EBITDA observation sharing the same date.
type JoinedRow struct {
	Date            time.Time
	EnterpriseValue float64
	EBITDA          float64
}

// JoinOnDate inner-joins the two series on calendar date. Dates present in only
// one series are dropped. The result is ordered newest first.
func JoinOnDate(ev, ebitda []model.MetricPoint) []JoinedRow {
	byDate := make(map[string][]float64, len(ebitda))
	for _, p := range ebitda {
		k := p.Date.Format(model.DateLayout)
		byDate[k] = append(byDate[k], p.Value)
	}
	rows := make([]JoinedRow, 0, len(ev))
	for _, p := range ev {
		for _, e := range byDate[p.Date.Format(model.DateLayout)] {
			rows = append(rows, JoinedRow{Date: p.Date, EnterpriseValue: p.Value, EBITDA: e})
		}
	}
	SortNewestFirst(rows)
	return rows
}

// SortNewestFirst orders rows by date descending, keeping input order for equal dates.
func SortNewestFirst(rows []JoinedRow) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.After(rows[j].Date) })
}

// Ratio returns ev/ebitda. EBITDA that is zero or negative has no meaningful multiple.
func Ratio(ev, ebitda float64) model.Optional {
	if ebitda <= 0 || math.IsNaN(ev) || math.IsNaN(ebitda) || math.IsInf(ev, 0) || math.IsInf(ebitda, 0) {
		return model.None()
	}
	return model.Some(ev / ebitda)
}

// RecentRatios returns up to n present ratios, in the given order, skipping absent ones.
func RecentRatios(ratios []model.Optional, n int) []float64 {
	out := make([]float64, 0, n)
	for _, r := range ratios {
		if len(out) == n {
			break
		}
		if r.Valid {
			out = append(out, r.Value)
		}
	}
	return out
}
