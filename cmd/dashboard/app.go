package main

import (
	"fmt"

	"github.com/appleyytsai/Dashboard/internal/cache"
	"github.com/appleyytsai/Dashboard/internal/collector"
	"github.com/appleyytsai/Dashboard/internal/config"
	"github.com/appleyytsai/Dashboard/internal/recorder"
	"github.com/appleyytsai/Dashboard/internal/valuation"
	"github.com/appleyytsai/Dashboard/internal/volume"
	"github.com/rs/zerolog/log"
)

func newEngine(c *config.Config) (*valuation.Engine, error) {
	store := cache.NewStore(c.Cache.Dir)
	src, err := collector.NewSeriesSource(c, store)
	if err != nil {
		return nil, err
	}
	persist := c.Ratio.Source == config.SourceCache || c.Ratio.Persist
	log.Info().Str("source", src.Name()).Bool("persist", persist).Msg("ratio engine ready")
	return valuation.NewEngine(src, store, c.Ratio.WindowSize, persist), nil
}

func newTracker(c *config.Config) (*volume.Tracker, error) {
	ann, err := c.Annotations()
	if err != nil {
		return nil, err
	}
	f := collector.NewYahooFetcher(c.HTTP.Timeout, c.Proxy)
	return volume.NewTracker(f, c.Volume.Symbol, c.Volume.Period, c.Volume.Window, ann), nil
}

func newRecorder(c *config.Config) recorder.Recorder {
	if c.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(c.Database.SQLitePath)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return sr
}

func newFMP(c *config.Config) (*collector.FMPClient, error) {
	if c.Ratio.APIKey == "" {
		return nil, fmt.Errorf("ratio.api_key (or FMP_API_KEY) is required")
	}
	return collector.NewFMPClient(c.Ratio.BaseURL, c.Ratio.APIKey, c.HTTP.Timeout, c.Proxy,
		collector.WithRateLimit(c.Ratio.RateLimit),
		collector.WithIncomeLimit(c.Ratio.IncomeLimit),
	), nil
}
