package dashboard

import (
	"fmt"
	"io"
	"net/http"

	"github.com/appleyytsai/Dashboard/internal/model"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

const (
	ratioSheet  = "EV-EBITDA"
	volumeSheet = "Volume"
)

var ratioHeader = []interface{}{
	"#", "Ticker", "Date", "Enterprise Value", "EBITDA",
	"Current EV/EBITDA Ratio", "EV/EBITDA Compared to 5Y", "5Y Median", "5Y High", "5Y Low",
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	snap := s.Provider.Snapshot()
	if snap == nil {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="ev_ebitda_ratios.xlsx"`)
	if err := WriteWorkbook(w, snap); err != nil {
		log.Error().Err(err).Msg("export workbook")
	}
}

// cellValue leaves absent values as the N/A marker.
func cellValue(o model.Optional) interface{} {
	if !o.Valid {
		return model.NotAvailable
	}
	return o.Value
}

// WriteWorkbook writes the latest ratio table and, when present, the volume series
// as an XLSX workbook.
func WriteWorkbook(w io.Writer, snap *model.Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ratioSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(ratioSheet, "A1", &ratioHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, rec := range snap.Ratios {
		row := []interface{}{
			i + 1, rec.Ticker, rec.Date.Format(model.DateLayout),
			cellValue(model.Known(rec.EnterpriseValue)), cellValue(model.Known(rec.EBITDA)),
			cellValue(rec.Ratio), string(rec.Label),
			cellValue(rec.Window.MedianValue()), cellValue(rec.Window.HighValue()), cellValue(rec.Window.LowValue()),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ratioSheet, cell, &row); err != nil {
			return fmt.Errorf("write ratio row %d: %w", i+1, err)
		}
	}

	if rep := snap.Volume; rep != nil {
		if _, err := f.NewSheet(volumeSheet); err != nil {
			return fmt.Errorf("add volume sheet: %w", err)
		}
		header := []interface{}{"Date", "Trading Volume", fmt.Sprintf("%d-Day MA", rep.Window)}
		if err := f.SetSheetRow(volumeSheet, "A1", &header); err != nil {
			return fmt.Errorf("write volume header: %w", err)
		}
		for i, rec := range rep.Records {
			row := []interface{}{rec.Date.Format(model.DateLayout), rec.Volume, cellValue(rec.MovingAverage)}
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(volumeSheet, cell, &row); err != nil {
				return fmt.Errorf("write volume row %d: %w", i+1, err)
			}
		}
	}

	return f.Write(w)
}
