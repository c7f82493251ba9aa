package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"RallyScope/internal/model"
)

// Source provides the already-fetched inputs of one instrument.
type Source interface {
	Collect(ctx context.Context, inst model.Instrument) (*model.InstrumentData, error)
}

// Runner fans the per-instrument pipeline out over a bounded worker pool.
type Runner struct {
	source   Source
	analyzer *Analyzer
	workers  int
	log      zerolog.Logger
}

// NewRunner creates a Runner with at most workers instruments in flight.
func NewRunner(source Source, analyzer *Analyzer, workers int, log zerolog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		source:   source,
		analyzer: analyzer,
		workers:  workers,
		log:      log.With().Str("component", "runner").Logger(),
	}
}

// Run analyzes every instrument of the universe. Instruments whose inputs
// cannot be collected are listed in Skipped; they never abort the batch.
// Only context cancellation stops a run early.
func (r *Runner) Run(ctx context.Context, universe []model.Instrument) (*model.BatchRun, error) {
	run := &model.BatchRun{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}
	log := r.log.With().Str("run_id", run.ID).Logger()
	log.Info().Int("instruments", len(universe)).Int("workers", r.workers).Msg("batch started")

	// Each worker writes only its own slot.
	results := make([]*model.InstrumentResult, len(universe))
	skipped := make([]bool, len(universe))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, inst := range universe {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := r.source.Collect(gctx, inst)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn().Err(err).Str("symbol", inst.Symbol).Msg("skipping instrument")
				skipped[i] = true
				return nil
			}
			results[i] = r.analyzer.Analyze(data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch %s: %w", run.ID, err)
	}

	for i, res := range results {
		switch {
		case skipped[i]:
			run.Skipped = append(run.Skipped, universe[i].Symbol)
		case res != nil:
			run.Results = append(run.Results, res)
		}
	}
	run.FinishedAt = time.Now()

	log.Info().
		Int("analyzed", len(run.Results)).
		Int("skipped", len(run.Skipped)).
		Dur("elapsed", run.FinishedAt.Sub(run.StartedAt)).
		Msg("batch finished")
	return run, nil
}
