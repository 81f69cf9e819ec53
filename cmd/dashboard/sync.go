package main

import (
	"fmt"

	"github.com/appleyytsai/Dashboard/internal/cache"
	"github.com/appleyytsai/Dashboard/internal/collector"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Download enterprise value and EBITDA series into the cache directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmp, err := newFMP(cfg)
		if err != nil {
			return err
		}
		store := cache.NewStore(cfg.Cache.Dir)
		failed := collector.Sync(cmd.Context(), fmp, store, cfg.Ratio.Tickers)
		for ticker, err := range failed {
			log.Error().Err(err).Str("ticker", ticker).Msg("sync failed")
		}
		log.Info().Int("synced", len(cfg.Ratio.Tickers)-len(failed)).Int("failed", len(failed)).Str("dir", cfg.Cache.Dir).Msg("sync finished")
		if len(failed) == len(cfg.Ratio.Tickers) && len(failed) > 0 {
			return fmt.Errorf("sync failed for every ticker")
		}
		return nil
	},
}
