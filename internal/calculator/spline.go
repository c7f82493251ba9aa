package calculator

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/interp"

	"RallyScope/internal/model"
)

// DefaultMaxSamples is the number of annual observations a metric carries.
const DefaultMaxSamples = 5

var (
	// ErrNegativeLength is returned when the requested dense length is < 0.
	ErrNegativeLength = errors.New("densify: target length must not be negative")
	// ErrUndensifiable is returned when fewer than two distinct year
	// coordinates are available for the spline fit.
	ErrUndensifiable = errors.New("densify: need at least two distinct year coordinates")
)

// Densifier turns sparse annual samples into a daily-resolution series.
type Densifier struct {
	// CurrentYear anchors the calendar year coordinates.
	CurrentYear int
	// MaxSamples caps how many of the most recent observations are used.
	MaxSamples int
	// FiscalYears uses the series' own fiscal-year labels as coordinates
	// when every label parses as a year.
	FiscalYears bool
}

// Densify fits a natural cubic spline through the metric's annual samples
// and evaluates it at length evenly spaced points spanning the year domain.
// Missing values are substituted with 0.
func (d Densifier) Densify(series model.SparseMetricSeries, length int) ([]float64, error) {
	if length < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeLength, length)
	}

	xs, ys := d.coordinates(series)
	if len(xs) < 2 {
		return nil, fmt.Errorf("%w: metric %q has %d", ErrUndensifiable, series.Name, len(xs))
	}

	var spline interp.NaturalCubic
	if err := spline.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("densify %q: %w", series.Name, err)
	}

	dense := make([]float64, length)
	if length == 0 {
		return dense, nil
	}
	lo, hi := xs[0], xs[len(xs)-1]
	if length == 1 {
		dense[0] = spline.Predict(lo)
		return dense, nil
	}
	step := (hi - lo) / float64(length-1)
	for i := range dense {
		x := lo + float64(i)*step
		if i == length-1 {
			x = hi
		}
		dense[i] = spline.Predict(x)
	}
	return dense, nil
}

// coordinates returns strictly increasing year coordinates and the matching
// chronological values.
func (d Densifier) coordinates(series model.SparseMetricSeries) (xs, ys []float64) {
	maxSamples := d.MaxSamples
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}

	values := series.Values
	if len(values) > maxSamples {
		values = values[:maxSamples]
	}

	// Received most-recent-first; reverse to chronological.
	ys = make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		ys[len(values)-1-i] = v
	}

	if d.FiscalYears {
		if fx, fy, ok := fiscalCoordinates(series.Labels, values, ys); ok {
			return fx, fy
		}
	}

	first := d.CurrentYear - (maxSamples - 1)
	xs = make([]float64, maxSamples)
	for i := range xs {
		xs[i] = float64(first + i)
	}
	if len(xs) > len(ys) {
		xs = xs[:len(ys)]
	}
	return xs, ys
}

// fiscalCoordinates maps labels like "2023" or "2023-12-31" to years.
// Duplicate years keep the most recently reported value.
func fiscalCoordinates(labels []string, values, chrono []float64) (xs, ys []float64, ok bool) {
	if len(labels) < len(values) {
		return nil, nil, false
	}
	n := len(values)
	type point struct {
		year  int
		value float64
	}
	seen := make(map[int]bool, n)
	points := make([]point, 0, n)
	for i := 0; i < n; i++ {
		year, err := parseYear(labels[i])
		if err != nil {
			return nil, nil, false
		}
		if seen[year] {
			continue
		}
		seen[year] = true
		points = append(points, point{year: year, value: chrono[n-1-i]})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].year < points[j].year })

	xs = make([]float64, len(points))
	ys = make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(p.year)
		ys[i] = p.value
	}
	return xs, ys, true
}

func parseYear(label string) (int, error) {
	if len(label) < 4 {
		return 0, fmt.Errorf("fiscal label %q too short", label)
	}
	return strconv.Atoi(label[:4])
}
