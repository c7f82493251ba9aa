package collector

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"RallyScope/internal/cache"
	"RallyScope/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price      float64
	DailyData  []model.OHLCV
	Statements *model.Statements
	Err        error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, _ string, days int) ([]model.OHLCV, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.DailyData != nil {
		return trimBars(m.DailyData, days), nil
	}
	return generateMockBars(m.Price, days), nil
}

func (m *MockFetcher) FetchStatements(_ context.Context, symbol string) (*model.Statements, error) {
	if m.Statements == nil {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoStatements)
	}
	return m.Statements, nil
}

// mockCycle is the period in bars of the synthetic price swing.
const mockCycle = 120

// generateMockBars builds a rising series that swings 25% around its trend
// every mockCycle bars, so a few hundred bars already hold several rallies.
func generateMockBars(basePrice float64, count int) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	start := time.Now().AddDate(0, 0, -count)
	for i := 0; i < count; i++ {
		swing := 0.25 * math.Sin(2*math.Pi*float64(i)/mockCycle)
		p := basePrice * (1 + swing + 0.0002*float64(i))
		bars[i] = model.OHLCV{
			Time:   start.AddDate(0, 0, i),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// Collector assembles the inputs of one instrument: its price history over
// the lookback window and its merged statement metrics.
type Collector struct {
	Prices       PriceFetcher
	Statements   StatementSource
	Cache        *cache.Store
	LookbackDays int
	MaxSamples   int
	log          zerolog.Logger
}

// NewCollector creates a new Collector. The cache is optional.
func NewCollector(prices PriceFetcher, statements StatementSource, store *cache.Store, lookbackDays, maxSamples int, log zerolog.Logger) *Collector {
	return &Collector{
		Prices:       prices,
		Statements:   statements,
		Cache:        store,
		LookbackDays: lookbackDays,
		MaxSamples:   maxSamples,
		log:          log.With().Str("component", "collector").Str("source", prices.Name()).Logger(),
	}
}

// Collect fetches statements and price history for inst. Missing
// statements are an error (the instrument is dropped); a failed price fetch
// only yields an empty series so the instrument still reports NaN scores.
func (c *Collector) Collect(ctx context.Context, inst model.Instrument) (*model.InstrumentData, error) {
	if c.Cache != nil {
		if data, ok := c.Cache.Get(inst.Symbol); ok {
			data.Instrument = inst
			return data, nil
		}
	}

	st, err := c.Statements.FetchStatements(ctx, inst.Symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch statements: %w", err)
	}
	if st.BalanceSheet.Empty() {
		return nil, fmt.Errorf("%s: %w", inst.Symbol, ErrNoStatements)
	}

	series := model.PriceSeries{Symbol: inst.Symbol, FetchedAt: time.Now()}
	bars, err := c.Prices.FetchDailyBars(ctx, inst.Symbol, c.LookbackDays)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.Warn().Err(err).Str("symbol", inst.Symbol).Msg("price history unavailable")
	} else {
		series.Bars = bars
	}

	data := &model.InstrumentData{
		Instrument: inst,
		Prices:     series,
		Metrics:    MergeStatements(st, c.MaxSamples),
	}

	if c.Cache != nil && series.Len() > 0 {
		if err := c.Cache.Put(data); err != nil {
			c.log.Warn().Err(err).Str("symbol", inst.Symbol).Msg("cache write failed")
		}
	}
	return data, nil
}
