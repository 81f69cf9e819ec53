package dashboard

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/appleyytsai/Dashboard/internal/model"
	"github.com/appleyytsai/Dashboard/internal/volume"
	"github.com/rs/zerolog/log"
)

//go:embed templates/index.html
var indexHTML string

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"opt": func(v *float64) string {
		if v == nil {
			return model.NotAvailable
		}
		return fmt.Sprintf("%.2f", *v)
	},
	"optional": func(o model.Optional) string {
		if !o.Valid {
			return model.NotAvailable
		}
		return volume.Shares(o.Value)
	},
	"shares": volume.Shares,
	"date":   func(r model.VolumeRecord) string { return r.Date.Format(model.DateLayout) },
}).Parse(indexHTML))

type pageData struct {
	Title       string
	Ready       bool
	RefreshedAt string
	Source      string
	Ratios      []ratioRow
	Skipped     []model.SkippedTicker
	Volume      *model.VolumeReport
	VolumeErr   string
	PeriodLabel string
	Summary     []string
	Chart       *volumeChart
}

func (s *Server) pageData() pageData {
	d := pageData{Title: s.Title}
	snap := s.Provider.Snapshot()
	if snap == nil {
		return d
	}
	d.Ready = true
	d.RefreshedAt = snap.RefreshedAt.Format("2006-01-02 15:04 MST")
	d.Source = snap.Source
	d.Ratios = ratioRows(snap.Ratios)
	d.Skipped = snap.Skipped
	d.VolumeErr = snap.VolumeErr
	if rep := snap.Volume; rep != nil {
		d.Volume = rep
		d.PeriodLabel = volume.PeriodLabel(rep.Period)
		d.Summary = volume.SummaryLines(rep)
		d.Chart = buildChart(rep)
	}
	return d
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, s.pageData()); err != nil {
		log.Error().Err(err).Msg("render dashboard")
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
