package notifier

import (
	"fmt"
	"html"
	"strings"

	"github.com/appleyytsai/Dashboard/internal/model"
	"github.com/appleyytsai/Dashboard/internal/volume"
)

// FormatRatioReport formats the latest-per-ticker EV/EBITDA table into a Telegram message.
func FormatRatioReport(snap *model.Snapshot) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>EV/EBITDA</b> | %s\n\n", snap.RefreshedAt.Format("2006-01-02")))
	if len(snap.Ratios) == 0 {
		b.WriteString("No ratio data available.\n")
	}
	for _, r := range snap.Ratios {
		w := r.Window
		b.WriteString(fmt.Sprintf("<b>%s</b> %s (%s)\n", html.EscapeString(r.Ticker), r.Ratio.Format(2), r.Label))
		b.WriteString(fmt.Sprintf("  median %s | high %s | low %s\n",
			w.MedianValue().Format(2), w.HighValue().Format(2), w.LowValue().Format(2)))
	}
	if len(snap.Skipped) > 0 {
		names := make([]string, len(snap.Skipped))
		for i, s := range snap.Skipped {
			names[i] = s.Ticker
		}
		b.WriteString(fmt.Sprintf("\n⚠️ unavailable: %s\n", html.EscapeString(strings.Join(names, ", "))))
	}
	return b.String()
}

// FormatVolumeReport formats the volume summary lines, or the failure that prevented them.
func FormatVolumeReport(snap *model.Snapshot) string {
	var b strings.Builder
	if snap.Volume == nil {
		msg := snap.VolumeErr
		if msg == "" {
			msg = "no trading volume data available"
		}
		b.WriteString(fmt.Sprintf("❌ <b>Volume</b>: %s\n", html.EscapeString(msg)))
		return b.String()
	}
	rep := snap.Volume
	b.WriteString(fmt.Sprintf("📈 <b>%s trading volume</b> (%s)\n\n", html.EscapeString(rep.Symbol), volume.PeriodLabel(rep.Period)))
	for _, line := range volume.SummaryLines(rep) {
		b.WriteString("• " + html.EscapeString(line) + "\n")
	}
	return b.String()
}

// FormatDailyDigest combines both reports.
func FormatDailyDigest(snap *model.Snapshot) string {
	return FormatRatioReport(snap) + "\n" + FormatVolumeReport(snap)
}
