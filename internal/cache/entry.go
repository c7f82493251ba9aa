package cache

import (
	"encoding/json"
	"math"
	"os"
	"time"

	"RallyScope/internal/model"
)

// entry is the on-disk form of one instrument's inputs. Metric values are
// pointers so missing observations survive JSON (which has no NaN).
type entry struct {
	SavedAt    time.Time         `json:"saved_at"`
	Instrument model.Instrument  `json:"instrument"`
	Prices     model.PriceSeries `json:"prices"`
	Metrics    []entryMetric     `json:"metrics"`
}

type entryMetric struct {
	Name   string     `json:"name"`
	Labels []string   `json:"labels"`
	Values []*float64 `json:"values"`
}

func newEntry(data *model.InstrumentData, savedAt time.Time) *entry {
	e := &entry{
		SavedAt:    savedAt,
		Instrument: data.Instrument,
		Prices:     data.Prices,
		Metrics:    make([]entryMetric, len(data.Metrics)),
	}
	for i, m := range data.Metrics {
		vals := make([]*float64, len(m.Values))
		for j, v := range m.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			v := v
			vals[j] = &v
		}
		e.Metrics[i] = entryMetric{Name: m.Name, Labels: m.Labels, Values: vals}
	}
	return e
}

func (e *entry) data() *model.InstrumentData {
	d := &model.InstrumentData{
		Instrument: e.Instrument,
		Prices:     e.Prices,
		Metrics:    make([]model.SparseMetricSeries, len(e.Metrics)),
	}
	for i, m := range e.Metrics {
		vals := make([]float64, len(m.Values))
		for j, v := range m.Values {
			if v == nil {
				vals[j] = math.NaN()
				continue
			}
			vals[j] = *v
		}
		d.Metrics[i] = model.SparseMetricSeries{Name: m.Name, Labels: m.Labels, Values: vals}
	}
	return d
}

// loadEntry reads an entry from a JSON file. Returns nil if the file doesn't exist.
func loadEntry(filePath string) (*entry, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// saveEntry writes an entry to a JSON file via a temp file and rename.
func saveEntry(filePath string, e *entry) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return err
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, filePath)
}
