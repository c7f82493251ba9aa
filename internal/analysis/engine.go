package analysis

import (
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"RallyScope/internal/calculator"
	"RallyScope/internal/model"
)

// Options tunes the per-instrument pipeline.
type Options struct {
	ProminenceRatio float64
	MinExtrema      int
	MaxSamples      int
	FiscalYears     bool
	// MetricWorkers bounds the per-instrument metric fan-out; <= 1 runs
	// metrics sequentially.
	MetricWorkers int
	// Now anchors calendar year coordinates; defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns the reference pipeline settings.
func DefaultOptions() Options {
	return Options{
		ProminenceRatio: calculator.DefaultProminenceRatio,
		MinExtrema:      calculator.DefaultMinExtrema,
		MaxSamples:      calculator.DefaultMaxSamples,
		MetricWorkers:   1,
		Now:             time.Now,
	}
}

// Analyzer runs detection, pairing, densification and correlation for one
// instrument at a time. It holds no per-instrument state and is safe for
// concurrent use.
type Analyzer struct {
	opts Options
	log  zerolog.Logger
}

// NewAnalyzer creates an Analyzer. Zero option fields take defaults.
func NewAnalyzer(opts Options, log zerolog.Logger) *Analyzer {
	def := DefaultOptions()
	if opts.ProminenceRatio <= 0 {
		opts.ProminenceRatio = def.ProminenceRatio
	}
	if opts.MinExtrema <= 0 {
		opts.MinExtrema = def.MinExtrema
	}
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = def.MaxSamples
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	return &Analyzer{opts: opts, log: log.With().Str("component", "analyzer").Logger()}
}

// Analyze produces the metric-to-score mapping for one instrument.
// Degenerate inputs never fail: they yield NaN scores with a Reason.
func (a *Analyzer) Analyze(data *model.InstrumentData) *model.InstrumentResult {
	now := a.opts.Now()
	prices := data.Prices.Closes()
	log := a.log.With().Str("symbol", data.Instrument.Symbol).Logger()

	// Step a: extrema and windows, computed once and shared read-only.
	ext := calculator.FindExtrema(prices, a.opts.ProminenceRatio)
	windows := calculator.PairWindows(ext.Peaks, ext.Valleys, a.opts.MinExtrema)

	result := &model.InstrumentResult{
		Instrument: data.Instrument,
		Days:       len(prices),
		Peaks:      ext.Peaks,
		Valleys:    ext.Valleys,
		Windows:    windows,
		Scores:     make([]model.MetricScore, len(data.Metrics)),
		AnalyzedAt: now,
	}

	switch {
	case len(prices) == 0:
		log.Warn().Msg("empty price history, all scores NaN")
	case len(windows) == 0:
		log.Debug().Int("peaks", len(ext.Peaks)).Int("valleys", len(ext.Valleys)).Msg("no rally windows")
	}

	// Step b: densify and correlate each metric against the shared windows.
	sc := metricScorer{
		prices:  prices,
		windows: windows,
		densifier: calculator.Densifier{
			CurrentYear: now.Year(),
			MaxSamples:  a.opts.MaxSamples,
			FiscalYears: a.opts.FiscalYears,
		},
		log: log,
	}

	if a.opts.MetricWorkers <= 1 {
		for i, m := range data.Metrics {
			result.Scores[i] = sc.score(m)
		}
		return result
	}

	var g errgroup.Group
	g.SetLimit(a.opts.MetricWorkers)
	for i, m := range data.Metrics {
		g.Go(func() error {
			result.Scores[i] = sc.score(m)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("metric scoring failed")
	}
	return result
}
