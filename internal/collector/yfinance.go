package collector

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"

	"RallyScope/internal/model"
)

// YFinanceFetcher implements PriceFetcher using the go-yfinance library.
type YFinanceFetcher struct {
	log zerolog.Logger
}

// NewYFinanceFetcher creates a go-yfinance backed fetcher.
func NewYFinanceFetcher(log zerolog.Logger) *YFinanceFetcher {
	return &YFinanceFetcher{log: log.With().Str("client", "yfinance").Logger()}
}

func (f *YFinanceFetcher) Name() string { return "yfinance" }

func (f *YFinanceFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("create ticker %s: %w", symbol, err)
	}
	defer t.Close()

	params := models.HistoryParams{
		Period:     yahooRange(days),
		Interval:   "1d",
		AutoAdjust: true,
	}
	history, err := t.History(params)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", symbol, err)
	}

	bars := make([]model.OHLCV, 0, len(history))
	for _, b := range history {
		if b.Close == 0 {
			continue
		}
		bars = append(bars, model.OHLCV{
			Time:   b.Date,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: float64(b.Volume),
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	f.log.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("history fetched")
	return trimBars(bars, days), nil
}
