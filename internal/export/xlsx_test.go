package export

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"RallyScope/internal/model"
)

func TestWriteXLSX(t *testing.T) {
	run := &model.BatchRun{
		ID:        "run-1",
		StartedAt: time.Now(),
		Results: []*model.InstrumentResult{{
			Instrument: model.Instrument{Symbol: "JPM", Label: model.CapMega, MarketCap: 5},
			Windows:    []model.Window{{Valley: 0, Peak: 4}, {Valley: 6, Peak: 9}},
			Scores: []model.MetricScore{
				{Metric: "Net Income", Score: 0.5, WindowTaus: []float64{1, 0}, Used: 2},
				{Metric: "Total Assets", Score: math.NaN(), WindowTaus: []float64{math.NaN(), math.NaN()}, Reason: model.ReasonUndefinedTau},
			},
		}},
	}

	path := filepath.Join(t.TempDir(), "out", "report.xlsx")
	require.NoError(t, WriteXLSX(path, run))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetScores, SheetWindows, SheetSummary}, f.GetSheetList())

	scores, err := f.GetRows(SheetScores, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.Equal(t, "Symbol", scores[0][0])
	assert.Equal(t, []string{"JPM", "Mega", "5", "Net Income", "0.5", "2", "0"}, scores[1][:7])
	assert.Equal(t, "", scores[2][4])
	assert.Equal(t, "UNDEFINED_TAU", scores[2][7])

	windows, err := f.GetRows(SheetWindows, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, windows, 5)
	assert.Equal(t, []string{"JPM", "Net Income", "6", "9", "3", "0"}, windows[2])

	summary, err := f.GetRows(SheetSummary, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, "Net Income", summary[1][0])
	assert.Equal(t, "0.5", summary[1][1])
}
