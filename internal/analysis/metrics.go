package analysis

import (
	"math"

	"github.com/rs/zerolog"

	"RallyScope/internal/calculator"
	"RallyScope/internal/model"
)

// metricScorer scores metrics of one instrument against its rally windows.
// All fields are read-only once built.
type metricScorer struct {
	prices    []float64
	windows   []model.Window
	densifier calculator.Densifier
	log       zerolog.Logger
}

func (s metricScorer) score(m model.SparseMetricSeries) model.MetricScore {
	out := model.MetricScore{
		Metric:  m.Name,
		Score:   math.NaN(),
		Missing: m.Missing(),
	}

	switch {
	case len(s.prices) == 0:
		out.Reason = model.ReasonMissingHistory
		return out
	case len(s.windows) == 0:
		out.Reason = model.ReasonNoWindows
		return out
	}

	dense, err := s.densifier.Densify(m, len(s.prices))
	if err != nil {
		s.log.Debug().Err(err).Str("metric", m.Name).Msg("metric not densifiable")
		out.Reason = model.ReasonUndensifiable
		return out
	}

	corr, err := calculator.CorrelateWindows(s.prices, dense, s.windows)
	if err != nil {
		// Densify always returns len(prices) values; reaching here is a bug.
		s.log.Error().Err(err).Str("metric", m.Name).Msg("correlate windows")
		out.Reason = model.ReasonUndefinedTau
		return out
	}

	out.Score = corr.Score
	out.WindowTaus = corr.Taus
	out.Used = corr.Used
	if corr.Used == 0 {
		out.Reason = model.ReasonUndefinedTau
	}
	return out
}
