package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"RallyScope/internal/analysis"
	"RallyScope/internal/cache"
	"RallyScope/internal/collector"
	"RallyScope/internal/config"
	"RallyScope/internal/logger"
	"RallyScope/internal/model"
	"RallyScope/internal/recorder"
	"RallyScope/internal/universe"
)

var (
	cfgPath string
	cfg     *config.Config
	log     zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "rallyscope",
	Short: "Correlate bank fundamentals with price rallies",
	Long: `RallyScope finds the rally windows of each bank's daily price history and
scores every balance sheet, income statement and cash flow metric by its
Kendall tau against price inside those windows.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		// A missing .env is fine; real env vars still apply.
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config validation: %w", err)
		}
		log = logger.NewWithWriter(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty}, os.Stderr)
		return nil
	},
}

func init() {
	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultPath, "configuration file")
	rootCmd.AddCommand(runCmd, serveCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// pipeline bundles the long-lived components built from config.
type pipeline struct {
	runner   *analysis.Runner
	store    *cache.Store
	recorder recorder.Recorder
}

func (p *pipeline) Close() {
	if err := p.recorder.Close(); err != nil {
		log.Warn().Err(err).Msg("close recorder")
	}
}

func buildPipeline() *pipeline {
	var prices collector.PriceFetcher
	var statements collector.StatementSource = collector.NewFileStatementSource(cfg.DataSource.StatementsDir)
	switch cfg.DataSource.Provider {
	case config.ProviderVsTrader:
		vs := collector.NewVsTraderFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
		prices, statements = vs, vs
	case config.ProviderYFinance:
		prices = collector.NewYFinanceFetcher(log)
	case config.ProviderMock:
		prices = &collector.MockFetcher{Price: 100}
	default:
		prices = collector.NewYahooFetcher(cfg.Proxy)
	}
	log.Info().Str("prices", prices.Name()).Str("provider", cfg.DataSource.Provider).Msg("data source")

	var store *cache.Store
	if cfg.Cache.Dir != "" {
		s, err := cache.NewStore(cfg.Cache.Dir, cfg.Cache.TTL)
		if err != nil {
			log.Warn().Err(err).Msg("cache disabled")
		} else {
			store = s
		}
	}

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			rec = sr
		}
	}

	col := collector.NewCollector(prices, statements, store, cfg.Analysis.LookbackDays, cfg.Analysis.MaxSamples, log)
	analyzer := analysis.NewAnalyzer(analysis.Options{
		ProminenceRatio: cfg.Analysis.ProminenceRatio,
		MinExtrema:      cfg.Analysis.MinExtrema,
		MaxSamples:      cfg.Analysis.MaxSamples,
		FiscalYears:     cfg.Analysis.YearSource == config.YearSourceFiscal,
	}, log)

	return &pipeline{
		runner:   analysis.NewRunner(col, analyzer, cfg.Analysis.Workers, log),
		store:    store,
		recorder: rec,
	}
}

// loadUniverse reads the configured screener CSV, or builds the universe
// from explicit symbols when given.
func loadUniverse(symbols []string) ([]model.Instrument, error) {
	filter := universe.Filter{Industry: cfg.Universe.Industry, MinMarketCap: cfg.Universe.MinMarketCap}
	if len(symbols) == 0 {
		return universe.LoadFile(cfg.Universe.CSVPath, filter)
	}

	// Explicit symbols keep their CSV metadata when the screener has them.
	known := make(map[string]model.Instrument)
	if insts, err := universe.LoadFile(cfg.Universe.CSVPath, universe.Filter{}); err == nil {
		for _, inst := range insts {
			known[inst.Symbol] = inst
		}
	}
	out := make([]model.Instrument, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(s)
		inst, ok := known[s]
		if !ok {
			inst = model.Instrument{Symbol: s, MarketCap: -1, Label: model.CapUnknown}
		}
		out = append(out, inst)
	}
	return out, nil
}
