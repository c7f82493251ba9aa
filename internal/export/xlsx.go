package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"RallyScope/internal/analysis"
	"RallyScope/internal/model"
)

// Sheet names of the workbook.
const (
	SheetScores  = "Scores"
	SheetWindows = "Windows"
	SheetSummary = "Summary"
)

var (
	scoreHeader   = []any{"Symbol", "Label", "Market Cap", "Metric", "Score", "Windows Used", "Missing", "Reason"}
	windowHeader  = []any{"Symbol", "Metric", "Valley", "Peak", "Days", "Tau"}
	summaryHeader = []any{"Metric", "Mean", "Std Dev", "Instruments"}
)

// WriteXLSX saves a run as a workbook: one row per instrument and metric,
// one row per window and metric with its tau, and the cross-instrument
// summary. NaN values are left blank.
func WriteXLSX(path string, run *model.BatchRun) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetScores); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetWindows, SheetSummary} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("new sheet %s: %w", name, err)
		}
	}

	w := sheetWriter{f: f}
	w.row(SheetScores, scoreHeader)
	w.row(SheetWindows, windowHeader)
	w.row(SheetSummary, summaryHeader)

	for _, res := range run.Results {
		inst := res.Instrument
		for _, s := range res.Scores {
			w.row(SheetScores, []any{
				inst.Symbol, string(inst.Label), inst.MarketCap,
				s.Metric, cell(s.Score), s.Used, s.Missing, string(s.Reason),
			})
			for i, win := range res.Windows {
				tau := math.NaN()
				if i < len(s.WindowTaus) {
					tau = s.WindowTaus[i]
				}
				w.row(SheetWindows, []any{inst.Symbol, s.Metric, win.Valley, win.Peak, win.Len(), cell(tau)})
			}
		}
	}
	for _, s := range analysis.Summarize(run) {
		w.row(SheetSummary, []any{s.Metric, cell(s.Mean), cell(s.StdDev), s.Instruments})
	}
	if w.err != nil {
		return w.err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// sheetWriter appends rows per sheet and keeps the first error.
type sheetWriter struct {
	f    *excelize.File
	next map[string]int
	err  error
}

func (w *sheetWriter) row(sheet string, values []any) {
	if w.err != nil {
		return
	}
	if w.next == nil {
		w.next = make(map[string]int)
	}
	w.next[sheet]++
	ref, err := excelize.CoordinatesToCellName(1, w.next[sheet])
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(sheet, ref, &values); err != nil {
		w.err = fmt.Errorf("write %s!%s: %w", sheet, ref, err)
	}
}

func cell(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
