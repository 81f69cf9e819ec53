package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/appleyytsai/Dashboard/internal/model"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the dashboard read while a refresh writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ratio_snapshots (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			timestamp   INTEGER NOT NULL,
			source      TEXT,
			ticker      TEXT NOT NULL,
			report_date TEXT NOT NULL,
			ev          REAL,
			ebitda      REAL,
			ratio       REAL,
			label       TEXT,
			median      REAL,
			high        REAL,
			low         REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ratio_ticker_ts ON ratio_snapshots(ticker, timestamp)`,

		`CREATE TABLE IF NOT EXISTS ratio_skips (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			ticker    TEXT NOT NULL,
			reason    TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS volume_snapshots (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id       TEXT NOT NULL,
			timestamp    INTEGER NOT NULL,
			symbol       TEXT NOT NULL,
			session_date TEXT,
			latest       REAL,
			average      REAL,
			change       REAL,
			change_pct   REAL,
			moving_avg   REAL,
			sessions     INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_volume_ts ON volume_snapshots(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func nullable(o model.Optional) sql.NullFloat64 {
	return sql.NullFloat64{Float64: o.Value, Valid: o.Valid}
}

func (r *SQLiteRecorder) RecordRatios(snap *RatioSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, rec := range snap.Latest {
		w := rec.Window
		if _, err := tx.Exec(`INSERT INTO ratio_snapshots
			(run_id, timestamp, source, ticker, report_date, ev, ebitda, ratio, label, median, high, low)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
			snap.RunID, now, snap.Source, rec.Ticker, rec.Date.Format(model.DateLayout),
			nullable(model.Known(rec.EnterpriseValue)), nullable(model.Known(rec.EBITDA)), nullable(rec.Ratio), string(rec.Label),
			nullable(w.MedianValue()), nullable(w.HighValue()), nullable(w.LowValue()),
		); err != nil {
			return fmt.Errorf("insert ratio snapshot %s: %w", rec.Ticker, err)
		}
	}
	for ticker, reason := range snap.Skipped {
		if _, err := tx.Exec(`INSERT INTO ratio_skips (run_id, timestamp, ticker, reason) VALUES (?,?,?,?)`,
			snap.RunID, now, ticker, reason,
		); err != nil {
			return fmt.Errorf("insert ratio skip %s: %w", ticker, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordVolume(snap *VolumeSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rep := snap.Report
	var sessionDate string
	var ma model.Optional
	if len(rep.Records) > 0 {
		sessionDate = rep.Records[0].Date.Format(model.DateLayout)
		ma = rep.Records[0].MovingAverage
	}
	s := rep.Summary
	_, err := r.db.Exec(`INSERT INTO volume_snapshots
		(run_id, timestamp, symbol, session_date, latest, average, change, change_pct, moving_avg, sessions)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		snap.RunID, time.Now().Unix(), rep.Symbol, sessionDate,
		s.Latest, s.Average, s.Change, s.ChangePct, nullable(ma), len(rep.Records),
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
