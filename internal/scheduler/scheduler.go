package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"RallyScope/internal/export"
	"RallyScope/internal/model"
	"RallyScope/internal/notifier"
	"RallyScope/internal/recorder"
)

// ErrBusy is returned when a batch is requested while another is running.
var ErrBusy = errors.New("a batch run is already in progress")

// Batcher runs the analysis pipeline over a universe.
type Batcher interface {
	Run(ctx context.Context, universe []model.Instrument) (*model.BatchRun, error)
}

// Sender delivers a report. TelegramNotifier implements it.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// UniverseFunc loads the instruments of one batch.
type UniverseFunc func() ([]model.Instrument, error)

// Scheduler triggers batch runs on a cron schedule or on demand, and keeps
// the latest run for command replies.
type Scheduler struct {
	Cron       *cron.Cron
	Batcher    Batcher
	Universe   UniverseFunc
	Recorder   recorder.Recorder
	Notifier   Sender // optional
	ExportPath string // optional xlsx output
	TopN       int
	Ctx        context.Context

	log     zerolog.Logger
	running atomic.Bool

	mu   sync.RWMutex
	last *model.BatchRun
}

// NewScheduler creates a new Scheduler. A nil recorder becomes a no-op.
func NewScheduler(ctx context.Context, b Batcher, universe UniverseFunc, rec recorder.Recorder, sender Sender, log zerolog.Logger) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Batcher:  b,
		Universe: universe,
		Recorder: rec,
		Notifier: sender,
		TopN:     10,
		Ctx:      ctx,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

// Register adds the batch task under a six-field cron expression.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.batchTask); err != nil {
		return fmt.Errorf("register batch task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// Last returns the most recent completed run, or nil.
func (s *Scheduler) Last() *model.BatchRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *Scheduler) batchTask() {
	if _, err := s.RunNow(s.Ctx); err != nil {
		s.log.Error().Err(err).Msg("scheduled batch failed")
	}
}

// RunNow executes one batch: load the universe, analyze, record, export
// and notify. Recording, export and notification failures are logged and
// do not fail the run.
func (s *Scheduler) RunNow(ctx context.Context) (*model.BatchRun, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.running.Store(false)

	universe, err := s.Universe()
	if err != nil {
		s.trySend(ctx, fmt.Sprintf("Universe load failed: %v", err))
		return nil, fmt.Errorf("load universe: %w", err)
	}
	if len(universe) == 0 {
		return nil, fmt.Errorf("load universe: no instruments")
	}

	run, err := s.Batcher.Run(ctx, universe)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.last = run
	s.mu.Unlock()

	if err := recorder.RecordAll(s.Recorder, run); err != nil {
		s.log.Error().Err(err).Str("run_id", run.ID).Msg("record run")
	}
	if s.ExportPath != "" {
		if err := export.WriteXLSX(s.ExportPath, run); err != nil {
			s.log.Error().Err(err).Str("path", s.ExportPath).Msg("export run")
		} else {
			s.log.Info().Str("path", s.ExportPath).Msg("run exported")
		}
	}

	msg := notifier.FormatTop(run, s.TopN)
	if len(run.Skipped) > 0 {
		msg += fmt.Sprintf("\nskipped %d: %s\n", len(run.Skipped), strings.Join(run.Skipped, ", "))
	}
	s.trySend(ctx, msg)
	return run, nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	switch fields[0] {
	case "/run":
		if _, err := s.RunNow(ctx); err != nil {
			return fmt.Sprintf("Run failed: %v", err)
		}
		// The run already sent its summary.
		return ""
	case "/top":
		run := s.Last()
		if run == nil {
			return noRunText
		}
		return notifier.FormatTop(run, s.TopN)
	case "/report":
		if len(fields) < 2 {
			return "Usage: /report SYMBOL"
		}
		run := s.Last()
		if run == nil {
			return noRunText
		}
		symbol := strings.ToUpper(fields[1])
		res := run.Find(symbol)
		if res == nil {
			return fmt.Sprintf("%s is not in the last run", symbol)
		}
		return notifier.FormatConclusion(res)
	default:
		return helpText
	}
}

const (
	helpText  = "Commands:\n/run - analyze the universe now\n/top - strongest metrics of the last run\n/report SYMBOL - metric scores of one bank"
	noRunText = "No run yet. Send /run to start one."
)

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}
