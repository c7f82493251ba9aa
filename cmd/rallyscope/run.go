package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"RallyScope/internal/export"
	"RallyScope/internal/notifier"
	"RallyScope/internal/recorder"
)

var (
	runExport  string
	runRefresh bool
	runTop     int
)

var runCmd = &cobra.Command{
	Use:   "run [SYMBOL...]",
	Short: "Analyze the universe once and print the report",
	Long: `Runs one batch over the screener universe, or over the given symbols,
prints every bank's metric scores followed by the strongest metrics, and
records the run.`,
	RunE: runOnce,
}

func init() {
	runCmd.Flags().StringVar(&runExport, "xlsx", "", "write the run to this workbook (defaults to export.xlsx_path)")
	runCmd.Flags().BoolVar(&runRefresh, "refresh", false, "ignore cached inputs and refetch")
	runCmd.Flags().IntVar(&runTop, "top", 10, "number of metrics in the summary")
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := buildPipeline()
	defer p.Close()

	insts, err := loadUniverse(args)
	if err != nil {
		return err
	}
	if len(insts) == 0 {
		return fmt.Errorf("universe is empty")
	}
	if runRefresh && p.store != nil {
		for _, inst := range insts {
			if err := p.store.Invalidate(inst.Symbol); err != nil {
				log.Warn().Err(err).Str("symbol", inst.Symbol).Msg("invalidate cache")
			}
		}
	}

	run, err := p.runner.Run(ctx, insts)
	if err != nil {
		return err
	}

	if err := recorder.RecordAll(p.recorder, run); err != nil {
		log.Error().Err(err).Msg("record run")
	}

	path := runExport
	if path == "" {
		path = cfg.Export.XLSXPath
	}
	if path != "" {
		if err := export.WriteXLSX(path, run); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("run exported")
	}

	fmt.Fprint(os.Stdout, notifier.FormatReport(run))
	fmt.Fprint(os.Stdout, notifier.FormatTop(run, runTop))
	return nil
}
