package cache

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/appleyytsai/Dashboard/internal/model"
)

// ErrShape is returned when a cache file does not have the expected columns.
var ErrShape = errors.New("unexpected cache file shape")

var ratioHeader = []string{"Ticker", "Date", "EnterpriseValue", "EBITDA", "Ratio", "Label", "Median", "High", "Low"}

var seriesColumn = map[model.MetricKind]string{
	model.KindEnterpriseValue: "EnterpriseValue",
	model.KindEBITDA:          "EBITDA",
}

// Store reads and writes flat per-ticker CSV files under Dir.
type Store struct {
	Dir string
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// SeriesPath is the file holding one raw series for ticker.
func (s *Store) SeriesPath(ticker string, kind model.MetricKind) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s_%s.csv", ticker, kind))
}

// RatioPath is the file holding the computed ratio table for ticker.
func (s *Store) RatioPath(ticker string) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s_ev_ebitda_ratio.csv", ticker))
}

// ReadSeries loads a raw series. A missing file is returned as an error wrapping os.ErrNotExist.
func (s *Store) ReadSeries(ticker string, kind model.MetricKind) ([]model.MetricPoint, error) {
	col, ok := seriesColumn[kind]
	if !ok {
		return nil, fmt.Errorf("unknown series kind %q", kind)
	}
	path := s.SeriesPath(ticker, kind)
	rows, err := readCSV(path, []string{"Date", col})
	if err != nil {
		return nil, err
	}
	points := make([]model.MetricPoint, 0, len(rows))
	for i, r := range rows {
		d, err := time.Parse(model.DateLayout, r[0])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w: date %q", path, i+1, ErrShape, r[0])
		}
		v, err := model.ParseOptional(r[1])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w: %s %q", path, i+1, ErrShape, col, r[1])
		}
		points = append(points, model.MetricPoint{Ticker: ticker, Date: d, Value: v.Float()})
	}
	return points, nil
}

// WriteSeries replaces the raw series file for ticker.
func (s *Store) WriteSeries(ticker string, kind model.MetricKind, points []model.MetricPoint) error {
	col, ok := seriesColumn[kind]
	if !ok {
		return fmt.Errorf("unknown series kind %q", kind)
	}
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		rows = append(rows, []string{p.Date.Format(model.DateLayout), formatFloat(p.Value)})
	}
	return writeCSV(s.SeriesPath(ticker, kind), []string{"Date", col}, rows)
}

// ReadRatios loads the previously persisted ratio table. No file means no prior rows.
func (s *Store) ReadRatios(ticker string) ([]model.RatioRecord, error) {
	path := s.RatioPath(ticker)
	rows, err := readCSV(path, ratioHeader)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]model.RatioRecord, 0, len(rows))
	for i, r := range rows {
		rec, err := parseRatioRow(r)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// WriteRatios replaces the ratio cache file with the given table.
func (s *Store) WriteRatios(table *model.RatioTable) error {
	rows := make([][]string, 0, len(table.Records))
	for _, r := range table.Records {
		rows = append(rows, []string{
			r.Ticker,
			r.Date.Format(model.DateLayout),
			formatFloat(r.EnterpriseValue),
			formatFloat(r.EBITDA),
			r.Ratio.Format(-1),
			string(r.Label),
			r.Window.MedianValue().Format(-1),
			r.Window.HighValue().Format(-1),
			r.Window.LowValue().Format(-1),
		})
	}
	return writeCSV(s.RatioPath(table.Ticker), ratioHeader, rows)
}

func parseRatioRow(r []string) (model.RatioRecord, error) {
	d, err := time.Parse(model.DateLayout, r[1])
	if err != nil {
		return model.RatioRecord{}, fmt.Errorf("%w: date %q", ErrShape, r[1])
	}
	ev, err := model.ParseOptional(r[2])
	if err != nil {
		return model.RatioRecord{}, fmt.Errorf("%w: enterprise value %q", ErrShape, r[2])
	}
	ebitda, err := model.ParseOptional(r[3])
	if err != nil {
		return model.RatioRecord{}, fmt.Errorf("%w: ebitda %q", ErrShape, r[3])
	}
	ratio, err := model.ParseOptional(r[4])
	if err != nil {
		return model.RatioRecord{}, fmt.Errorf("%w: ratio %q", ErrShape, r[4])
	}
	var w model.WindowStats
	med, errM := model.ParseOptional(r[6])
	hi, errH := model.ParseOptional(r[7])
	lo, errL := model.ParseOptional(r[8])
	if err := errors.Join(errM, errH, errL); err != nil {
		return model.RatioRecord{}, fmt.Errorf("%w: window: %v", ErrShape, err)
	}
	if med.Valid && hi.Valid && lo.Valid {
		w = model.WindowStats{Median: med.Value, High: hi.Value, Low: lo.Value, Available: true}
	}
	return model.RatioRecord{
		Ticker:          r[0],
		Date:            d,
		EnterpriseValue: ev.Float(),
		EBITDA:          ebitda.Float(),
		Ratio:           ratio,
		Label:           model.Label(r[5]),
		Window:          w,
	}, nil
}

// formatFloat writes the shortest exact form, or N/A for an unreported value.
func formatFloat(v float64) string {
	return model.Known(v).Format(-1)
}

func readCSV(path string, header []string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cache file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)
	got, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: %w: empty file", path, ErrShape)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, ErrShape, err)
	}
	if strings.Join(got, ",") != strings.Join(header, ",") {
		return nil, fmt.Errorf("%s: %w: header %v, want %v", path, ErrShape, got, header)
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, ErrShape, err)
	}
	return rows, nil
}

// writeCSV writes through a temp file and rename so readers never see a partial table.
func writeCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
