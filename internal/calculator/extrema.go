package calculator

import (
	"gonum.org/v1/gonum/floats"
)

// DefaultProminenceRatio is the share of the series maximum a peak must
// stand out by to count as significant.
const DefaultProminenceRatio = 0.15

// Extrema holds the significant peak and valley indices of a price series,
// both ascending.
type Extrema struct {
	Peaks   []int
	Valleys []int
}

// FindExtrema returns peaks and valleys whose prominence is at least
// ratio * max(prices). Valleys are peaks of the negated series.
// An empty series yields empty sets.
func FindExtrema(prices []float64, ratio float64) Extrema {
	if len(prices) == 0 {
		return Extrema{}
	}
	threshold := floats.Max(prices) * ratio

	neg := make([]float64, len(prices))
	copy(neg, prices)
	floats.Scale(-1, neg)

	return Extrema{
		Peaks:   FindPeaks(prices, threshold),
		Valleys: FindPeaks(neg, threshold),
	}
}

// FindPeaks returns local maxima of x whose prominence is >= minProminence.
func FindPeaks(x []float64, minProminence float64) []int {
	var peaks []int
	for _, p := range localMaxima(x) {
		if Prominence(x, p) >= minProminence {
			peaks = append(peaks, p)
		}
	}
	return peaks
}

// localMaxima finds samples larger than both neighbours. For flat tops the
// middle sample (rounded down) is reported. The first and last samples are
// never maxima.
func localMaxima(x []float64) []int {
	var peaks []int
	last := len(x) - 1
	i := 1
	for i < last {
		if x[i-1] < x[i] {
			ahead := i + 1
			for ahead < last && x[ahead] == x[i] {
				ahead++
			}
			if x[ahead] < x[i] {
				peaks = append(peaks, (i+ahead-1)/2)
				i = ahead
			}
		}
		i++
	}
	return peaks
}

// Prominence measures how far x[peak] stands above the higher of the two
// lowest points reached on each side before the signal climbs above it
// (or the series ends).
func Prominence(x []float64, peak int) float64 {
	if peak < 0 || peak >= len(x) {
		return 0
	}
	height := x[peak]

	leftMin := height
	for i := peak; i >= 0 && x[i] <= height; i-- {
		if x[i] < leftMin {
			leftMin = x[i]
		}
	}

	rightMin := height
	for i := peak; i < len(x) && x[i] <= height; i++ {
		if x[i] < rightMin {
			rightMin = x[i]
		}
	}

	base := leftMin
	if rightMin > base {
		base = rightMin
	}
	return height - base
}
