package recorder

import (
	"database/sql"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RallyScope/internal/logger"
	"RallyScope/internal/model"
)

func sampleRun() *model.BatchRun {
	now := time.Date(2025, 3, 3, 6, 30, 0, 0, time.UTC)
	return &model.BatchRun{
		ID:         "run-1",
		StartedAt:  now,
		FinishedAt: now.Add(time.Minute),
		Skipped:    []string{"ZZZ"},
		Results: []*model.InstrumentResult{{
			Instrument: model.Instrument{Symbol: "JPM", MarketCap: 560e9, Label: model.CapMega},
			Days:       10,
			Peaks:      []int{2, 7},
			Valleys:    []int{0, 4},
			Windows:    []model.Window{{Valley: 0, Peak: 2}, {Valley: 4, Peak: 7}},
			Scores: []model.MetricScore{
				{Metric: "Net Income", Score: 0.5, Used: 2},
				{Metric: "Total Assets", Score: math.NaN(), Reason: model.ReasonUndefinedTau},
			},
			AnalyzedAt: now,
		}},
	}
}

func TestSQLiteRecorder_RecordAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rally.db")
	r, err := NewSQLiteRecorder(path, logger.Nop())
	require.NoError(t, err)
	defer r.Close()

	run := sampleRun()
	require.NoError(t, RecordAll(r, run))

	var analyzed int
	var skipped string
	require.NoError(t, r.db.QueryRow(`SELECT analyzed, skipped FROM runs WHERE id = ?`, run.ID).Scan(&analyzed, &skipped))
	assert.Equal(t, 1, analyzed)
	assert.Equal(t, "ZZZ", skipped)

	var label string
	var windows int
	require.NoError(t, r.db.QueryRow(`SELECT cap_label, windows FROM instrument_results WHERE symbol = 'JPM'`).Scan(&label, &windows))
	assert.Equal(t, "Mega", label)
	assert.Equal(t, 2, windows)

	var income, assets sql.NullFloat64
	var reason string
	require.NoError(t, r.db.QueryRow(`SELECT score FROM metric_scores WHERE metric = 'Net Income'`).Scan(&income))
	require.NoError(t, r.db.QueryRow(`SELECT score, reason FROM metric_scores WHERE metric = 'Total Assets'`).Scan(&assets, &reason))
	assert.True(t, income.Valid)
	assert.Equal(t, 0.5, income.Float64)
	assert.False(t, assets.Valid)
	assert.Equal(t, "UNDEFINED_TAU", reason)

	var n int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM rally_windows`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestSQLiteRecorder_RunUpsert(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "rally.db"), logger.Nop())
	require.NoError(t, err)
	defer r.Close()

	run := &model.BatchRun{ID: "run-2", StartedAt: time.Now()}
	require.NoError(t, r.RecordRun(run))

	var finished sql.NullInt64
	require.NoError(t, r.db.QueryRow(`SELECT finished_at FROM runs WHERE id = ?`, run.ID).Scan(&finished))
	assert.False(t, finished.Valid)

	run.FinishedAt = time.Now()
	require.NoError(t, r.RecordRun(run))
	require.NoError(t, r.db.QueryRow(`SELECT finished_at FROM runs WHERE id = ?`, run.ID).Scan(&finished))
	assert.True(t, finished.Valid)

	var n int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, RecordAll(r, sampleRun()))
	assert.NoError(t, r.Close())
}
