package analysis

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RallyScope/internal/logger"
	"RallyScope/internal/model"
)

var fixedNow = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

// rallyPrices has one clean trough-to-peak rally between indices 94 and 157.
func rallyPrices(n int) model.PriceSeries {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, n)
	for i := range bars {
		c := 100 + 30*math.Sin(float64(i)/20) + float64(i)*0.1
		bars[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Close: c}
	}
	return model.PriceSeries{Symbol: "TEST", Bars: bars}
}

func testData(prices model.PriceSeries) *model.InstrumentData {
	return &model.InstrumentData{
		Instrument: model.Instrument{Symbol: "TEST", Label: model.CapLarge},
		Prices:     prices,
		Metrics: []model.SparseMetricSeries{
			{Name: "Growing", Values: []float64{5, 4, 3, 2, 1}},
			{Name: "Shrinking", Values: []float64{1, 2, 3, 4, 5}},
			{Name: "Single", Values: []float64{7}},
		},
	}
}

func newTestAnalyzer(workers int) *Analyzer {
	opts := DefaultOptions()
	opts.Now = fixedNow
	opts.MetricWorkers = workers
	return NewAnalyzer(opts, logger.Nop())
}

func TestAnalyze_RallyWindowScores(t *testing.T) {
	res := newTestAnalyzer(1).Analyze(testData(rallyPrices(300)))

	require.Len(t, res.Windows, 1)
	assert.Equal(t, 300, res.Days)
	require.Len(t, res.Scores, 3)

	grow, ok := res.Score("Growing")
	require.True(t, ok)
	assert.InDelta(t, 1.0, grow.Score, 1e-12)
	assert.Equal(t, 1, grow.Used)
	assert.Equal(t, model.ReasonOK, grow.Reason)

	shrink, _ := res.Score("Shrinking")
	assert.InDelta(t, -1.0, shrink.Score, 1e-12)

	single, _ := res.Score("Single")
	assert.True(t, math.IsNaN(single.Score))
	assert.Equal(t, model.ReasonUndensifiable, single.Reason)
}

func TestAnalyze_ParallelMetricsMatchSequential(t *testing.T) {
	seq := newTestAnalyzer(1).Analyze(testData(rallyPrices(300)))
	par := newTestAnalyzer(4).Analyze(testData(rallyPrices(300)))

	assert.Equal(t, seq.Windows, par.Windows)
	for i := range seq.Scores {
		assert.Equal(t, seq.Scores[i].Metric, par.Scores[i].Metric)
		assert.Equal(t, math.Float64bits(seq.Scores[i].Score), math.Float64bits(par.Scores[i].Score))
	}
}

func TestAnalyze_EmptyHistory(t *testing.T) {
	res := newTestAnalyzer(1).Analyze(testData(model.PriceSeries{Symbol: "TEST"}))

	assert.Empty(t, res.Peaks)
	assert.Empty(t, res.Valleys)
	assert.Empty(t, res.Windows)
	for _, s := range res.Scores {
		assert.True(t, math.IsNaN(s.Score), s.Metric)
		assert.Equal(t, model.ReasonMissingHistory, s.Reason)
	}
	assert.Len(t, res.ScoreMap(), 3)
}

func TestAnalyze_NoWindows(t *testing.T) {
	bars := make([]model.OHLCV, 50)
	for i := range bars {
		bars[i].Close = float64(i + 1)
	}
	res := newTestAnalyzer(1).Analyze(testData(model.PriceSeries{Bars: bars}))

	assert.Empty(t, res.Windows)
	for _, s := range res.Scores {
		assert.True(t, math.IsNaN(s.Score))
		assert.Equal(t, model.ReasonNoWindows, s.Reason)
	}
}

type fakeSource struct {
	calls atomic.Int32
	fail  map[string]error
}

func (f *fakeSource) Collect(_ context.Context, inst model.Instrument) (*model.InstrumentData, error) {
	f.calls.Add(1)
	if err, ok := f.fail[inst.Symbol]; ok {
		return nil, err
	}
	data := testData(rallyPrices(300))
	data.Instrument = inst
	return data, nil
}

func TestRunner_SkipsFailuresAndKeepsOrder(t *testing.T) {
	src := &fakeSource{fail: map[string]error{"BAD": errors.New("no balance sheet")}}
	r := NewRunner(src, newTestAnalyzer(1), 3, logger.Nop())

	universe := []model.Instrument{{Symbol: "A"}, {Symbol: "BAD"}, {Symbol: "C"}, {Symbol: "D"}}
	run, err := r.Run(context.Background(), universe)
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, int32(4), src.calls.Load())
	assert.Equal(t, []string{"BAD"}, run.Skipped)
	require.Len(t, run.Results, 3)
	assert.Equal(t, "A", run.Results[0].Instrument.Symbol)
	assert.Equal(t, "C", run.Results[1].Instrument.Symbol)
	assert.Equal(t, "D", run.Results[2].Instrument.Symbol)
	assert.NotNil(t, run.Find("C"))
	assert.Nil(t, run.Find("BAD"))
	assert.False(t, run.FinishedAt.Before(run.StartedAt))
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(&fakeSource{}, newTestAnalyzer(1), 2, logger.Nop())
	_, err := r.Run(ctx, []model.Instrument{{Symbol: "A"}, {Symbol: "B"}})
	assert.ErrorIs(t, err, context.Canceled)
}
