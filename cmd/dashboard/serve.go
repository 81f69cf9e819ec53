package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/appleyytsai/Dashboard/internal/dashboard"
	"github.com/appleyytsai/Dashboard/internal/notifier"
	"github.com/appleyytsai/Dashboard/internal/scheduler"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var skipInitial bool

func init() {
	serveCmd.Flags().BoolVar(&skipInitial, "no-initial-refresh", false, "Wait for the first scheduled refresh instead of refreshing on start")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard and refresh it on a daily schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(cfg)
		if err != nil {
			return err
		}
		tr, err := newTracker(cfg)
		if err != nil {
			return err
		}
		rec := newRecorder(cfg)
		defer rec.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		var sender scheduler.Sender
		if tn.Enabled() {
			sender = tn
		}

		sched := scheduler.NewScheduler(ctx, eng, tr, cfg.Ratio.Tickers, rec, sender)
		if err := sched.RegisterAll(cfg.Schedule.RefreshCron); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()

		if tn.Enabled() {
			go tn.StartPolling(ctx, sched.HandleCommand)
			log.Info().Msg("telegram polling started")
		}
		if !skipInitial {
			go sched.Refresh(ctx)
		}

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           dashboard.NewServer(sched).Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", cfg.Server.Addr).Msg("dashboard listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case <-ctx.Done():
			log.Info().Msg("shutdown signal received, stopping")
		case err := <-errCh:
			return err
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
		return nil
	},
}

