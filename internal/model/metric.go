package model

import "math"

// Statement is one financial statement table. Periods are fiscal period
// labels ordered most-recent-first; every item row is aligned with Periods
// and carries NaN for missing observations.
type Statement struct {
	Periods []string             `json:"periods"`
	Items   map[string][]float64 `json:"items"`
}

// Empty reports whether the statement has no line items.
func (s Statement) Empty() bool { return len(s.Items) == 0 }

// Statements groups the three categorized statements of one instrument.
type Statements struct {
	BalanceSheet    Statement `json:"balance_sheet"`
	IncomeStatement Statement `json:"income_statement"`
	CashFlow        Statement `json:"cash_flow"`
}

// SparseMetricSeries is one line item sampled annually, most-recent-first
// as received from the provider. Missing values are NaN.
type SparseMetricSeries struct {
	Name   string    `json:"name"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Len returns the number of observations.
func (s SparseMetricSeries) Len() int { return len(s.Values) }

// Missing counts observations that are NaN or infinite.
func (s SparseMetricSeries) Missing() int {
	n := 0
	for _, v := range s.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			n++
		}
	}
	return n
}
