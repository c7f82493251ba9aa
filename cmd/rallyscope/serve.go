package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"RallyScope/internal/model"
	"RallyScope/internal/notifier"
	"RallyScope/internal/scheduler"
)

var serveRunNow bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run batches on the cron schedule and answer Telegram commands",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveRunNow, "run-now", os.Getenv("RUN_ON_START") == "true", "run one batch immediately")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := buildPipeline()
	defer p.Close()

	var tn *notifier.TelegramNotifier
	var sender scheduler.Sender
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		sender = tn
	} else {
		log.Warn().Msg("telegram not configured, reports are only logged")
	}

	sched := scheduler.NewScheduler(ctx, p.runner, func() ([]model.Instrument, error) {
		return loadUniverse(nil)
	}, p.recorder, sender, log)
	sched.ExportPath = cfg.Export.XLSXPath
	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if serveRunNow {
		log.Info().Msg("running batch on start")
		go func() {
			if _, err := sched.RunNow(ctx); err != nil {
				log.Error().Err(err).Msg("startup batch failed")
			}
		}()
	}

	log.Info().Str("cron", cfg.Schedule.Cron).Msg("RallyScope is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	cancel()
	return nil
}
