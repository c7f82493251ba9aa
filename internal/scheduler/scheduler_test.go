package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RallyScope/internal/logger"
	"RallyScope/internal/model"
)

type fakeBatcher struct {
	block chan struct{}
	err   error
	calls int
}

func (f *fakeBatcher) Run(_ context.Context, universe []model.Instrument) (*model.BatchRun, error) {
	f.calls++
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	run := &model.BatchRun{ID: "run-1", StartedAt: time.Now(), FinishedAt: time.Now()}
	for _, inst := range universe {
		run.Results = append(run.Results, &model.InstrumentResult{
			Instrument: inst,
			Scores:     []model.MetricScore{{Metric: "Net Income", Score: 0.25}},
		})
	}
	return run, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func banks() ([]model.Instrument, error) {
	return []model.Instrument{
		{Symbol: "JPM", Label: model.CapMega},
		{Symbol: "ZION", Label: model.CapMedium},
	}, nil
}

func newTestScheduler(b Batcher, sender Sender) *Scheduler {
	return NewScheduler(context.Background(), b, banks, nil, sender, logger.Nop())
}

func TestRunNow_NotifiesAndKeepsLast(t *testing.T) {
	sender := &fakeSender{}
	s := newTestScheduler(&fakeBatcher{}, sender)
	s.ExportPath = filepath.Join(t.TempDir(), "report.xlsx")

	assert.Nil(t, s.Last())
	run, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Same(t, run, s.Last())
	assert.FileExists(t, s.ExportPath)

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "1. Net Income: +0.2500 (2)")
}

func TestRunNow_Errors(t *testing.T) {
	s := newTestScheduler(&fakeBatcher{err: context.Canceled}, nil)
	_, err := s.RunNow(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, s.Last())

	sender := &fakeSender{}
	s = newTestScheduler(&fakeBatcher{}, sender)
	s.Universe = func() ([]model.Instrument, error) { return nil, errors.New("no csv") }
	_, err = s.RunNow(context.Background())
	assert.ErrorContains(t, err, "no csv")
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "Universe load failed")
}

func TestRunNow_RejectsOverlap(t *testing.T) {
	b := &fakeBatcher{block: make(chan struct{})}
	s := newTestScheduler(b, nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.RunNow(context.Background())
		done <- err
	}()
	require.Eventually(t, s.running.Load, time.Second, time.Millisecond)

	_, err := s.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(b.block)
	assert.NoError(t, <-done)
}

func TestHandleCommand(t *testing.T) {
	sender := &fakeSender{}
	s := newTestScheduler(&fakeBatcher{}, sender)
	ctx := context.Background()

	assert.Contains(t, s.HandleCommand(ctx, "/top"), "No run yet")
	assert.Contains(t, s.HandleCommand(ctx, "/help"), "/report SYMBOL")
	assert.Contains(t, s.HandleCommand(ctx, ""), "Commands:")

	assert.Equal(t, "", s.HandleCommand(ctx, "/run"))
	assert.Len(t, sender.sent, 1)

	assert.Contains(t, s.HandleCommand(ctx, "/top"), "Net Income")
	assert.Equal(t, "--- ZION - Medium Bank ---\nNet Income: +0.2500\n", s.HandleCommand(ctx, "/report zion"))
	assert.Contains(t, s.HandleCommand(ctx, "/report WFC"), "not in the last run")
	assert.Equal(t, "Usage: /report SYMBOL", s.HandleCommand(ctx, "/report"))
}

func TestRegister(t *testing.T) {
	s := newTestScheduler(&fakeBatcher{}, nil)
	assert.NoError(t, s.Register("0 30 6 * * 1-5"))
	assert.Error(t, s.Register("not a cron"))
}
