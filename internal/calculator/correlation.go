package calculator

import (
	"errors"
	"fmt"
	"math"

	"RallyScope/internal/model"
)

// ErrLengthMismatch is returned when the dense metric and the price series
// differ in length.
var ErrLengthMismatch = errors.New("correlate: metric and price lengths differ")

// WindowCorrelation is the outcome of correlating one metric over all rally
// windows of an instrument.
type WindowCorrelation struct {
	Score float64   // mean of the defined taus, NaN when none
	Taus  []float64 // one per window, NaN where undefined
	Used  int       // number of defined taus
}

// CorrelateWindows computes Kendall's tau between prices[v:p] and
// dense[v:p] for every window and averages the defined values.
// Windows with fewer than two samples or a constant side are skipped and
// excluded from the denominator.
func CorrelateWindows(prices, dense []float64, windows []model.Window) (WindowCorrelation, error) {
	if len(prices) != len(dense) {
		return WindowCorrelation{Score: math.NaN()},
			fmt.Errorf("%w: %d prices, %d metric values", ErrLengthMismatch, len(prices), len(dense))
	}

	res := WindowCorrelation{Taus: make([]float64, len(windows))}
	var sum float64
	for i, w := range windows {
		if w.Valley < 0 || w.Peak > len(prices) || w.Valley >= w.Peak {
			res.Taus[i] = math.NaN()
			continue
		}
		tau := KendallTau(prices[w.Valley:w.Peak], dense[w.Valley:w.Peak])
		res.Taus[i] = tau
		if math.IsNaN(tau) {
			continue
		}
		sum += tau
		res.Used++
	}

	if res.Used == 0 {
		res.Score = math.NaN()
		return res, nil
	}
	res.Score = sum / float64(res.Used)
	return res, nil
}
