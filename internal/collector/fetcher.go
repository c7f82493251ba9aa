package collector

import (
	"context"

	"RallyScope/internal/model"
)

// PriceFetcher defines the interface for fetching daily price history.
// Bars come back in ascending date order, at most days of them (the most
// recent). Instruments younger than days return their full history.
type PriceFetcher interface {
	FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error)
	Name() string
}

// StatementSource defines the interface for fetching annual financial statements.
type StatementSource interface {
	FetchStatements(ctx context.Context, symbol string) (*model.Statements, error)
}
