package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/appleyytsai/Dashboard/internal/valuation"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(ratiosCmd)
}

var ratiosCmd = &cobra.Command{
	Use:   "ratios",
	Short: "Compute and print the latest EV/EBITDA table",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(cfg)
		if err != nil {
			return err
		}
		res := eng.RunBatch(cmd.Context(), cfg.Ratio.Tickers)

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "#\tTicker\tCurrent EV/EBITDA Ratio\tEV/EBITDA Compared to 5Y\t5Y Median\t5Y High\t5Y Low\t")
		for i, r := range valuation.Latest(res.Tables) {
			w := r.Window
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t\n", i+1, r.Ticker, r.Ratio.Format(2), r.Label,
				w.MedianValue().Format(2), w.HighValue().Format(2), w.LowValue().Format(2))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		for _, s := range res.Skipped {
			fmt.Fprintf(os.Stderr, "skipped %s: %v\n", s.Ticker, s.Err)
		}
		fmt.Println("Data updates daily.")
		return nil
	},
}
