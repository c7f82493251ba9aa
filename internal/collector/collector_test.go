package collector

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RallyScope/internal/cache"
	"RallyScope/internal/calculator"
	"RallyScope/internal/logger"
	"RallyScope/internal/model"
)

func TestMergeStatements_PrecedenceAndOrder(t *testing.T) {
	st := &model.Statements{
		BalanceSheet: model.Statement{
			Periods: []string{"2024", "2023"},
			Items: map[string][]float64{
				"Total Assets": {100, 90},
				"Net Income":   {1, 1},
			},
		},
		CashFlow: model.Statement{
			Periods: []string{"2024", "2023"},
			Items: map[string][]float64{
				"Net Income":     {2, 2},
				"Free Cash Flow": {5, 4},
			},
		},
		IncomeStatement: model.Statement{
			Periods: []string{"2024", "2023", "2022", "2021", "2020", "2019"},
			Items: map[string][]float64{
				"Net Income": {3, 3, 3, 3, 3, 3},
			},
		},
	}

	metrics := MergeStatements(st, 5)
	require.Len(t, metrics, 3)
	assert.Equal(t, "Free Cash Flow", metrics[0].Name)
	assert.Equal(t, "Net Income", metrics[1].Name)
	assert.Equal(t, "Total Assets", metrics[2].Name)

	// Income statement wins and is capped at five samples.
	assert.Equal(t, []float64{3, 3, 3, 3, 3}, metrics[1].Values)
	assert.Equal(t, []string{"2024", "2023", "2022", "2021", "2020"}, metrics[1].Labels)
}

func TestFileStatementSource(t *testing.T) {
	dir := t.TempDir()
	yml := `
balance_sheet:
  periods: ["2024-12-31", "2023-12-31", "2022-12-31"]
  items:
    Total Assets: [300, null, "100"]
    Notes: ["n/a", 1, 2]
income_statement:
  periods: ["2024-12-31"]
  items:
    Net Income: [12.5]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "JPM.yaml"), []byte(yml), 0644))
	src := NewFileStatementSource(dir)

	st, err := src.FetchStatements(context.Background(), "jpm")
	require.NoError(t, err)
	assets := st.BalanceSheet.Items["Total Assets"]
	require.Len(t, assets, 3)
	assert.Equal(t, 300.0, assets[0])
	assert.True(t, math.IsNaN(assets[1]))
	assert.Equal(t, 100.0, assets[2])
	assert.True(t, math.IsNaN(st.BalanceSheet.Items["Notes"][0]))
	assert.Equal(t, []float64{12.5}, st.IncomeStatement.Items["Net Income"])
	assert.True(t, st.CashFlow.Empty())

	_, err = src.FetchStatements(context.Background(), "WFC")
	assert.ErrorIs(t, err, ErrNoStatements)
}

func TestYahooFetcher_FetchDailyBars(t *testing.T) {
	var gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/BRK-B", r.URL.Path)
		gotRange = r.URL.Query().Get("range")
		w.Write([]byte(`{"chart":{"result":[{"timestamp":[1704326400,1704153600,1704240000],
			"indicators":{"quote":[{"open":[3,1,null],"high":[3,1,null],"low":[3,1,null],
			"close":[3.5,1.5,null],"volume":[300,100,null]}]}}],"error":null}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL

	bars, err := f.FetchDailyBars(context.Background(), "BRK/B", 1258)
	require.NoError(t, err)
	assert.Equal(t, "5y", gotRange)
	require.Len(t, bars, 2)
	assert.Equal(t, 1.5, bars[0].Close)
	assert.Equal(t, 3.5, bars[1].Close)
	assert.True(t, bars[0].Time.Before(bars[1].Time))

	bars, err = f.FetchDailyBars(context.Background(), "BRK/B", 1)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 3.5, bars[0].Close)
}

func TestYahooFetcher_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	_, err := f.FetchDailyBars(context.Background(), "NOPE", 100)
	assert.ErrorContains(t, err, "No data found")
}

func TestYahooRange(t *testing.T) {
	assert.Equal(t, "max", yahooRange(0))
	assert.Equal(t, "1y", yahooRange(200))
	assert.Equal(t, "5y", yahooRange(1258))
	assert.Equal(t, "10y", yahooRange(2000))
	assert.Equal(t, "max", yahooRange(5000))
}

func TestVsTraderFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		switch {
		case r.URL.Path == "/api/v1/bars/daily":
			w.Write([]byte(`[{"timestamp":1704240000,"close":2},{"timestamp":1704153600,"close":1}]`))
		case r.URL.Path == "/api/v1/financials" && r.URL.Query().Get("symbol") == "JPM":
			w.Write([]byte(`{"balance_sheet":{"periods":["2024","2023"],"items":{"Total Assets":[2,null]}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewVsTraderFetcher(srv.URL, "secret", "")
	ctx := context.Background()

	bars, err := f.FetchDailyBars(ctx, "JPM", 10)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 1.0, bars[0].Close)

	st, err := f.FetchStatements(ctx, "JPM")
	require.NoError(t, err)
	assert.Equal(t, 2.0, st.BalanceSheet.Items["Total Assets"][0])
	assert.True(t, math.IsNaN(st.BalanceSheet.Items["Total Assets"][1]))

	_, err = f.FetchStatements(ctx, "WFC")
	assert.ErrorIs(t, err, ErrNoStatements)
}

func mockStatements() *model.Statements {
	return &model.Statements{
		BalanceSheet: model.Statement{
			Periods: []string{"2024", "2023", "2022"},
			Items:   map[string][]float64{"Total Assets": {3, 2, 1}},
		},
	}
}

func TestCollector_Collect(t *testing.T) {
	mock := &MockFetcher{Price: 100, Statements: mockStatements()}
	c := NewCollector(mock, mock, nil, 30, 5, logger.Nop())

	data, err := c.Collect(context.Background(), model.Instrument{Symbol: "JPM"})
	require.NoError(t, err)
	assert.Equal(t, 30, data.Prices.Len())
	require.Len(t, data.Metrics, 1)
	assert.Equal(t, "Total Assets", data.Metrics[0].Name)
}

func TestMockFetcher_BarsFormRallyWindows(t *testing.T) {
	mock := &MockFetcher{Price: 100}
	for _, days := range []int{250, 1258} {
		bars, err := mock.FetchDailyBars(context.Background(), "X", days)
		require.NoError(t, err)
		require.Len(t, bars, days)

		closes := make([]float64, len(bars))
		for i, b := range bars {
			closes[i] = b.Close
		}
		ext := calculator.FindExtrema(closes, calculator.DefaultProminenceRatio)
		windows := calculator.PairWindows(ext.Peaks, ext.Valleys, calculator.DefaultMinExtrema)
		assert.NotEmpty(t, windows, "days=%d", days)
	}
}

func TestCollector_NoBalanceSheetIsDropped(t *testing.T) {
	mock := &MockFetcher{Price: 100, Statements: &model.Statements{
		IncomeStatement: model.Statement{Items: map[string][]float64{"Net Income": {1, 2}}},
	}}
	c := NewCollector(mock, mock, nil, 30, 5, logger.Nop())

	_, err := c.Collect(context.Background(), model.Instrument{Symbol: "JPM"})
	assert.True(t, errors.Is(err, ErrNoStatements))
}

func TestCollector_PriceFailureYieldsEmptyHistory(t *testing.T) {
	prices := &MockFetcher{Err: errors.New("rate limited")}
	statements := &MockFetcher{Statements: mockStatements()}
	c := NewCollector(prices, statements, nil, 30, 5, logger.Nop())

	data, err := c.Collect(context.Background(), model.Instrument{Symbol: "JPM"})
	require.NoError(t, err)
	assert.Zero(t, data.Prices.Len())
	assert.Len(t, data.Metrics, 1)
}

func TestCollector_UsesCache(t *testing.T) {
	store, err := cache.NewStore(t.TempDir(), time.Hour)
	require.NoError(t, err)

	mock := &MockFetcher{Price: 50, Statements: mockStatements()}
	c := NewCollector(mock, mock, store, 20, 5, logger.Nop())
	inst := model.Instrument{Symbol: "C", Label: model.CapLarge}

	first, err := c.Collect(context.Background(), inst)
	require.NoError(t, err)

	// A failing provider is never consulted on a cache hit.
	mock.Err = errors.New("offline")
	mock.Statements = nil
	second, err := c.Collect(context.Background(), inst)
	require.NoError(t, err)
	assert.Equal(t, first.Prices.Closes(), second.Prices.Closes())
	assert.Equal(t, model.CapLarge, second.Instrument.Label)
}
