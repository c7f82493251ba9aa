package recorder

import "RallyScope/internal/model"

// Recorder persists batch runs for later analysis.
type Recorder interface {
	// RecordRun stores the run header. Results are written separately so a
	// long batch can be persisted as instruments finish.
	RecordRun(run *model.BatchRun) error
	RecordResult(runID string, res *model.InstrumentResult) error
	Close() error
}

// RecordAll writes a run and every one of its results, stopping at the
// first error.
func RecordAll(r Recorder, run *model.BatchRun) error {
	if err := r.RecordRun(run); err != nil {
		return err
	}
	for _, res := range run.Results {
		if err := r.RecordResult(run.ID, res); err != nil {
			return err
		}
	}
	return nil
}
