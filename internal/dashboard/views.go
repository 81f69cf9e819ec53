package dashboard

import (
	"time"

	"github.com/appleyytsai/Dashboard/internal/model"
)

type ratioRow struct {
	No     int      `json:"no"`
	Ticker string   `json:"ticker"`
	Date   string   `json:"date"`
	Ratio  *float64 `json:"ratio"`
	Label  string   `json:"label"`
	Median *float64 `json:"median"`
	High   *float64 `json:"high"`
	Low    *float64 `json:"low"`
	EV     *float64 `json:"enterprise_value"`
	EBITDA *float64 `json:"ebitda"`
}

type ratioResponse struct {
	RunID       string                `json:"run_id"`
	Source      string                `json:"source"`
	RefreshedAt time.Time             `json:"refreshed_at"`
	Ratios      []ratioRow            `json:"ratios"`
	Skipped     []model.SkippedTicker `json:"skipped"`
}

type volumeRow struct {
	Date          string   `json:"date"`
	Volume        float64  `json:"volume"`
	MovingAverage *float64 `json:"moving_average"`
}

type volumeResponse struct {
	Symbol      string              `json:"symbol"`
	Period      string              `json:"period"`
	Window      int                 `json:"window"`
	FetchedAt   time.Time           `json:"fetched_at"`
	Summary     model.VolumeSummary `json:"summary"`
	Records     []volumeRow         `json:"records"`
	Annotations []model.Annotation  `json:"annotations"`
}

func optPtr(o model.Optional) *float64 {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}

func ratioRows(recs []model.RatioRecord) []ratioRow {
	rows := make([]ratioRow, len(recs))
	for i, r := range recs {
		rows[i] = ratioRow{
			No:     i + 1,
			Ticker: r.Ticker,
			Date:   r.Date.Format(model.DateLayout),
			Ratio:  optPtr(r.Ratio),
			Label:  string(r.Label),
			Median: optPtr(r.Window.MedianValue()),
			High:   optPtr(r.Window.HighValue()),
			Low:    optPtr(r.Window.LowValue()),
			EV:     optPtr(model.Known(r.EnterpriseValue)),
			EBITDA: optPtr(model.Known(r.EBITDA)),
		}
	}
	return rows
}

func newRatioResponse(s *model.Snapshot) ratioResponse {
	skipped := s.Skipped
	if skipped == nil {
		skipped = []model.SkippedTicker{}
	}
	return ratioResponse{
		RunID:       s.RunID,
		Source:      s.Source,
		RefreshedAt: s.RefreshedAt,
		Ratios:      ratioRows(s.Ratios),
		Skipped:     skipped,
	}
}

func newVolumeResponse(rep *model.VolumeReport) volumeResponse {
	rows := make([]volumeRow, len(rep.Records))
	for i, r := range rep.Records {
		rows[i] = volumeRow{Date: r.Date.Format(model.DateLayout), Volume: r.Volume, MovingAverage: optPtr(r.MovingAverage)}
	}
	return volumeResponse{
		Symbol:      rep.Symbol,
		Period:      rep.Period,
		Window:      rep.Window,
		FetchedAt:   rep.FetchedAt,
		Summary:     rep.Summary,
		Records:     rows,
		Annotations: rep.Annotations,
	}
}
