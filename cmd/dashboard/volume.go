package main

import (
	"fmt"

	"github.com/appleyytsai/Dashboard/internal/volume"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(volumeCmd)
}

var volumeCmd = &cobra.Command{
	Use:   "volume",
	Short: "Fetch and summarise the configured symbol's trading volume",
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, err := newTracker(cfg)
		if err != nil {
			return err
		}
		rep, err := tr.Track(cmd.Context())
		if err != nil {
			return fmt.Errorf("no trading volume data available: %w", err)
		}

		fmt.Printf("%s trading volume (%s)\n\n", rep.Symbol, volume.PeriodLabel(rep.Period))
		for _, line := range volume.SummaryLines(rep) {
			fmt.Println("- " + line)
		}
		fmt.Printf("\n%-12s %15s %15s\n", "Date", "Volume", fmt.Sprintf("%d-Day MA", rep.Window))
		for _, r := range rep.Records {
			ma := "N/A"
			if r.MovingAverage.Valid {
				ma = volume.Shares(r.MovingAverage.Value)
			}
			fmt.Printf("%-12s %15s %15s\n", r.Date.Format("2006-01-02"), volume.Shares(r.Volume), ma)
		}
		return nil
	},
}
