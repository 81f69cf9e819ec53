package main

import (
	"fmt"
	"os"

	"github.com/appleyytsai/Dashboard/internal/config"
	"github.com/appleyytsai/Dashboard/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	cfg     *config.Config
)

func init() {
	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultPath, "Path to the YAML config file")
}

var rootCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "EV/EBITDA ratio and trading volume dashboard",
	Long: `Fetches enterprise value, EBITDA and daily volume from market-data providers,
labels each ticker's EV/EBITDA against its trailing history and tracks the rolling
average of trading volume for one symbol.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("config validation: %w", err)
		}
		logging.Setup(c.Log.Level, c.Log.Pretty)
		cfg = c
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
