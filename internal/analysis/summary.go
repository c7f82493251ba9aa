package analysis

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"RallyScope/internal/model"
)

// MetricSummary aggregates one metric across the instruments of a run.
type MetricSummary struct {
	Metric      string
	Mean        float64
	StdDev      float64 // NaN with fewer than two instruments
	Instruments int     // instruments with a defined score
}

// Summarize averages each metric over the instruments that have a defined
// score for it, strongest mean first. Metrics never defined are omitted.
func Summarize(run *model.BatchRun) []MetricSummary {
	values := make(map[string][]float64)
	for _, res := range run.Results {
		for _, s := range res.Scores {
			if s.Defined() {
				values[s.Metric] = append(values[s.Metric], s.Score)
			}
		}
	}

	out := make([]MetricSummary, 0, len(values))
	for metric, xs := range values {
		mean, std := stat.MeanStdDev(xs, nil)
		out = append(out, MetricSummary{
			Metric:      metric,
			Mean:        mean,
			StdDev:      std,
			Instruments: len(xs),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Mean != out[j].Mean {
			return out[i].Mean > out[j].Mean
		}
		return out[i].Metric < out[j].Metric
	})
	return out
}
