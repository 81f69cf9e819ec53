package volume

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/appleyytsai/Dashboard/internal/model"
	"github.com/dustin/go-humanize"
)

// PeriodLabel turns a lookback such as "3mo" into "Last 3 Months".
func PeriodLabel(period string) string {
	units := []struct{ suffix, one, many string }{
		{"mo", "Month", "Months"},
		{"y", "Year", "Years"},
		{"d", "Day", "Days"},
		{"wk", "Week", "Weeks"},
	}
	for _, u := range units {
		n, ok := strings.CutSuffix(period, u.suffix)
		if _, err := strconv.Atoi(n); ok && err == nil {
			if n == "1" {
				return "Last " + u.one
			}
			return fmt.Sprintf("Last %s %s", n, u.many)
		}
	}
	return period
}

// Shares formats a share count with thousands separators.
func Shares(v float64) string {
	return humanize.Comma(int64(math.Round(v)))
}

// TrendIcon is the arrow shown next to the day-over-day change.
func TrendIcon(t model.Trend) string {
	if t == model.TrendUp {
		return "📈"
	}
	return "📉"
}

// SummaryLines renders the textual summary shown under the chart.
func SummaryLines(rep *model.VolumeReport) []string {
	s := rep.Summary
	lines := []string{
		fmt.Sprintf("Latest Trading Volume: %s shares", Shares(s.Latest)),
		fmt.Sprintf("Average Volume (%s): %s shares", PeriodLabel(rep.Period), Shares(s.Average)),
	}
	if !s.HasPrevious {
		return append(lines, "Trend: Data insufficient for comparison")
	}
	return append(lines, fmt.Sprintf("Trend: %s %s shares (%.2f%%) compared to yesterday",
		TrendIcon(s.Trend), Shares(s.Change), s.ChangePct))
}
