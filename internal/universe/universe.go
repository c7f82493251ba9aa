package universe

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"RallyScope/internal/model"
)

// Required CSV columns, as exported by the NASDAQ stock screener.
const (
	ColumnSymbol    = "Symbol"
	ColumnMarketCap = "Market Cap"
	ColumnIndustry  = "Industry"
)

// Filter selects which screener rows enter the universe.
type Filter struct {
	Industry     string  // exact match; empty keeps every industry
	MinMarketCap float64 // rows below are dropped
}

// capTiers maps a market-cap floor to its label, largest first.
var capTiers = []struct {
	Min   float64
	Label model.CapLabel
}{
	{200_000_000_000, model.CapMega},
	{10_000_000_000, model.CapLarge},
	{2_000_000_000, model.CapMedium},
	{300_000_000, model.CapSmall},
	{50_000_000, model.CapMicro},
}

// LabelFor buckets a market capitalisation.
func LabelFor(marketCap float64) model.CapLabel {
	if marketCap < 0 {
		return model.CapUnknown
	}
	for _, t := range capTiers {
		if marketCap >= t.Min {
			return t.Label
		}
	}
	return model.CapNano
}

// LoadFile reads a screener CSV from disk.
func LoadFile(path string, f Filter) ([]model.Instrument, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open universe: %w", err)
	}
	defer file.Close()
	return Load(file, f)
}

// Load parses a screener CSV. Rows with an empty Symbol, Market Cap or
// Industry are dropped, as are rows rejected by the filter.
func Load(r io.Reader, f Filter) ([]model.Instrument, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("universe: empty csv")
		}
		return nil, fmt.Errorf("universe header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range []string{ColumnSymbol, ColumnMarketCap, ColumnIndustry} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("universe: missing column %q", col)
		}
	}

	var out []model.Instrument
	seen := make(map[string]bool)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("universe row: %w", err)
		}

		symbol := field(rec, idx[ColumnSymbol])
		industry := field(rec, idx[ColumnIndustry])
		mc, ok := parseMarketCap(field(rec, idx[ColumnMarketCap]))
		if symbol == "" || industry == "" || !ok {
			continue
		}
		if mc < f.MinMarketCap || (f.Industry != "" && industry != f.Industry) {
			continue
		}
		if seen[symbol] {
			continue
		}
		seen[symbol] = true

		out = append(out, model.Instrument{
			Symbol:    symbol,
			MarketCap: mc,
			Industry:  industry,
			Label:     LabelFor(mc),
		})
	}
	return out, nil
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseMarketCap(s string) (float64, bool) {
	s = strings.NewReplacer("$", "", ",", "").Replace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
