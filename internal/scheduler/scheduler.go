package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/appleyytsai/Dashboard/internal/metrics"
	"github.com/appleyytsai/Dashboard/internal/model"
	"github.com/appleyytsai/Dashboard/internal/notifier"
	"github.com/appleyytsai/Dashboard/internal/recorder"
	"github.com/appleyytsai/Dashboard/internal/valuation"
	"github.com/appleyytsai/Dashboard/internal/volume"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Sender delivers a formatted digest. *notifier.TelegramNotifier satisfies it.
type Sender interface {
	Deliver(ctx context.Context, text string) error
}

// Scheduler runs refreshes on a cron schedule and holds the latest snapshot.
type Scheduler struct {
	Cron     *cron.Cron
	Engine   *valuation.Engine
	Tracker  *volume.Tracker
	Tickers  []string
	Recorder recorder.Recorder
	Notifier Sender
	Ctx      context.Context

	mu      sync.RWMutex
	refresh sync.Mutex
	snap    *model.Snapshot
}

// NewScheduler creates a new Scheduler. notifier may be nil.
func NewScheduler(ctx context.Context, eng *valuation.Engine, tr *volume.Tracker, tickers []string, rec recorder.Recorder, n Sender) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Engine:   eng,
		Tracker:  tr,
		Tickers:  tickers,
		Recorder: rec,
		Notifier: n,
		Ctx:      ctx,
	}
}

// RegisterAll registers the daily refresh task.
func (s *Scheduler) RegisterAll(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.scheduledRefresh); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// Snapshot returns the last completed refresh, or nil before the first one.
func (s *Scheduler) Snapshot() *model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Scheduler) scheduledRefresh() {
	snap := s.Refresh(s.Ctx)
	s.trySend(notifier.FormatDailyDigest(snap))
}

// Refresh recomputes the ratio table and the volume report, records them and
// publishes the new snapshot. Overlapping calls run one at a time.
func (s *Scheduler) Refresh(ctx context.Context) *model.Snapshot {
	s.refresh.Lock()
	defer s.refresh.Unlock()

	start := time.Now()
	runID := uuid.NewString()
	logger := log.With().Str("run_id", runID).Logger()
	logger.Info().Int("tickers", len(s.Tickers)).Msg("refresh started")

	snap := &model.Snapshot{
		RunID:  runID,
		Source: s.Engine.Source.Name(),
	}

	batch := s.Engine.RunBatch(ctx, s.Tickers)
	snap.Ratios = valuation.Latest(batch.Tables)
	skipped := make(map[string]string, len(batch.Skipped))
	for _, sk := range batch.Skipped {
		snap.Skipped = append(snap.Skipped, model.SkippedTicker{Ticker: sk.Ticker, Reason: sk.Err.Error()})
		skipped[sk.Ticker] = sk.Err.Error()
	}

	if s.Tracker != nil {
		rep, err := s.Tracker.Track(ctx)
		if err != nil {
			logger.Error().Err(err).Str("symbol", s.Tracker.Symbol).Msg("volume tracking failed")
			snap.VolumeErr = err.Error()
		} else {
			snap.Volume = rep
		}
	}

	if err := s.Recorder.RecordRatios(&recorder.RatioSnapshot{
		RunID:   runID,
		Source:  snap.Source,
		Latest:  snap.Ratios,
		Skipped: skipped,
	}); err != nil {
		logger.Error().Err(err).Msg("record ratios")
	}
	if snap.Volume != nil {
		if err := s.Recorder.RecordVolume(&recorder.VolumeSnapshot{RunID: runID, Report: snap.Volume}); err != nil {
			logger.Error().Err(err).Msg("record volume")
		}
	}

	snap.RefreshedAt = time.Now()
	metrics.LastRefresh.Set(float64(snap.RefreshedAt.Unix()))
	metrics.RefreshDuration.Observe(time.Since(start).Seconds())

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	logger.Info().
		Int("ratios", len(snap.Ratios)).
		Int("skipped", len(snap.Skipped)).
		Bool("volume", snap.Volume != nil).
		Dur("elapsed", time.Since(start)).
		Msg("refresh finished")
	return snap
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/refresh":
		return notifier.FormatDailyDigest(s.Refresh(s.Ctx))
	case "/ratios", "/volume":
		snap := s.Snapshot()
		if snap == nil {
			return "No data yet. Send /refresh to fetch."
		}
		if command == "/ratios" {
			return notifier.FormatRatioReport(snap)
		}
		return notifier.FormatVolumeReport(snap)
	default:
		return "Available commands:\n• /ratios\n• /volume\n• /refresh"
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Deliver(s.Ctx, text); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}
