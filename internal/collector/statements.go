package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"RallyScope/internal/model"
)

// ErrNoStatements marks instruments without balance-sheet data; they are
// dropped from the universe.
var ErrNoStatements = errors.New("no balance sheet data")

// MergeStatements unions the line items of the three statements into one
// metric list sorted by name. On key collision cash flow overrides balance
// sheet and income statement overrides both. Each series keeps at most
// maxSamples of its most recent observations.
func MergeStatements(st *model.Statements, maxSamples int) []model.SparseMetricSeries {
	merged := make(map[string]model.SparseMetricSeries)
	for _, s := range []model.Statement{st.BalanceSheet, st.CashFlow, st.IncomeStatement} {
		for name, values := range s.Items {
			n := len(values)
			if maxSamples > 0 && n > maxSamples {
				n = maxSamples
			}
			labels := make([]string, n)
			for i := 0; i < n && i < len(s.Periods); i++ {
				labels[i] = s.Periods[i]
			}
			vals := make([]float64, n)
			copy(vals, values[:n])
			merged[name] = model.SparseMetricSeries{Name: name, Labels: labels, Values: vals}
		}
	}

	out := make([]model.SparseMetricSeries, 0, len(merged))
	for _, m := range merged {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// rawStatement is the wire/disk shape shared by the file and REST sources.
// Values may be numbers, numeric strings or null.
type rawStatement struct {
	Periods []string         `yaml:"periods" json:"periods"`
	Items   map[string][]any `yaml:"items" json:"items"`
}

type rawStatements struct {
	BalanceSheet    rawStatement `yaml:"balance_sheet" json:"balance_sheet"`
	IncomeStatement rawStatement `yaml:"income_statement" json:"income_statement"`
	CashFlow        rawStatement `yaml:"cash_flow" json:"cash_flow"`
}

func (r rawStatements) toModel() *model.Statements {
	return &model.Statements{
		BalanceSheet:    r.BalanceSheet.toModel(),
		IncomeStatement: r.IncomeStatement.toModel(),
		CashFlow:        r.CashFlow.toModel(),
	}
}

func (r rawStatement) toModel() model.Statement {
	st := model.Statement{Periods: r.Periods, Items: make(map[string][]float64, len(r.Items))}
	for name, raw := range r.Items {
		vals := make([]float64, len(raw))
		for i, v := range raw {
			if f, ok := toFloat(v); ok {
				vals[i] = f
			} else {
				vals[i] = math.NaN()
			}
		}
		st.Items[name] = vals
	}
	return st
}

// toFloat converts a decoded JSON/YAML scalar. ok is false for null and
// non-numeric values.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n), ",", ""), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// FileStatementSource reads statements from <Dir>/<SYMBOL>.yaml.
type FileStatementSource struct {
	Dir string
}

// NewFileStatementSource creates a source rooted at dir.
func NewFileStatementSource(dir string) *FileStatementSource {
	return &FileStatementSource{Dir: dir}
}

func (f *FileStatementSource) FetchStatements(_ context.Context, symbol string) (*model.Statements, error) {
	path := filepath.Join(f.Dir, strings.ToUpper(symbol)+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", symbol, ErrNoStatements)
		}
		return nil, fmt.Errorf("read statements: %w", err)
	}
	var raw rawStatements
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse statements %s: %w", path, err)
	}
	return raw.toModel(), nil
}
