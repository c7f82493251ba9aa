package notifier

import (
	"fmt"
	"math"
	"strings"

	"RallyScope/internal/analysis"
	"RallyScope/internal/model"
)

// FormatScore renders a score with four decimals, or NaN.
func FormatScore(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%+.4f", v)
}

// FormatConclusion renders one instrument's metric scores, one per line,
// under a "--- SYMBOL - Label Bank ---" header.
func FormatConclusion(res *model.InstrumentResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- %s - %s Bank ---\n", res.Instrument.Symbol, res.Instrument.Label)
	if len(res.Scores) == 0 {
		b.WriteString("(no metrics)\n")
		return b.String()
	}
	for _, s := range res.Scores {
		fmt.Fprintf(&b, "%s: %s", s.Metric, FormatScore(s.Score))
		if s.Reason != model.ReasonOK {
			fmt.Fprintf(&b, " (%s)", s.Reason)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatReport renders every instrument of a run in universe order.
func FormatReport(run *model.BatchRun) string {
	var b strings.Builder
	fmt.Fprintf(&b, "RallyScope run %s | %s\n", run.ID, run.StartedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "analyzed %d, skipped %d\n\n", len(run.Results), len(run.Skipped))
	for _, res := range run.Results {
		b.WriteString(FormatConclusion(res))
		b.WriteString("\n")
	}
	if len(run.Skipped) > 0 {
		fmt.Fprintf(&b, "skipped: %s\n", strings.Join(run.Skipped, ", "))
	}
	return b.String()
}

// FormatTop lists the n metrics with the highest mean score.
func FormatTop(run *model.BatchRun, n int) string {
	summary := analysis.Summarize(run)
	if n > 0 && len(summary) > n {
		summary = summary[:n]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Top metrics | run %s\n", run.StartedAt.Format("2006-01-02"))
	if len(summary) == 0 {
		b.WriteString("no defined scores\n")
		return b.String()
	}
	for i, s := range summary {
		fmt.Fprintf(&b, "%d. %s: %s (%d)\n", i+1, s.Metric, FormatScore(s.Mean), s.Instruments)
	}
	return b.String()
}
