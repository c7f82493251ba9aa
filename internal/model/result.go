package model

import (
	"math"
	"time"
)

// Reason explains why a metric score is NaN.
type Reason string

const (
	ReasonOK             Reason = ""
	ReasonMissingHistory Reason = "MISSING_HISTORY"
	ReasonNoWindows      Reason = "INSUFFICIENT_EXTREMA"
	ReasonUndensifiable  Reason = "SPARSE_DATA_SHORTAGE"
	ReasonUndefinedTau   Reason = "UNDEFINED_TAU"
)

// Window is one rally segment: a valley index followed by a later peak index.
type Window struct {
	Valley int `json:"valley"`
	Peak   int `json:"peak"`
}

// Len returns the number of samples in the half-open slice [Valley, Peak).
func (w Window) Len() int { return w.Peak - w.Valley }

// MetricScore is the correlation result for one metric of one instrument.
type MetricScore struct {
	Metric     string
	Score      float64   // NaN when no window produced a defined tau
	WindowTaus []float64 // aligned with the instrument's windows, NaN where undefined
	Used       int       // windows that contributed to Score
	Missing    int       // sparse observations substituted with 0
	Reason     Reason
}

// Defined reports whether the score is a number.
func (m MetricScore) Defined() bool { return !math.IsNaN(m.Score) }

// InstrumentResult is the full analysis output for one instrument.
type InstrumentResult struct {
	Instrument Instrument
	Days       int
	Peaks      []int
	Valleys    []int
	Windows    []Window
	Scores     []MetricScore // sorted by metric name
	AnalyzedAt time.Time
}

// ScoreMap returns the metric-to-score mapping.
func (r *InstrumentResult) ScoreMap() map[string]float64 {
	m := make(map[string]float64, len(r.Scores))
	for _, s := range r.Scores {
		m[s.Metric] = s.Score
	}
	return m
}

// Score looks up a single metric.
func (r *InstrumentResult) Score(metric string) (MetricScore, bool) {
	for _, s := range r.Scores {
		if s.Metric == metric {
			return s, true
		}
	}
	return MetricScore{}, false
}

// BatchRun aggregates one pass over the universe.
type BatchRun struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []*InstrumentResult // universe order
	Skipped    []string            // symbols dropped before analysis
}

// Find returns the result for a symbol.
func (b *BatchRun) Find(symbol string) *InstrumentResult {
	for _, r := range b.Results {
		if r.Instrument.Symbol == symbol {
			return r
		}
	}
	return nil
}
