package model

import "time"

// OHLCV represents a single daily bar.
type OHLCV struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries holds one instrument's daily bars in ascending date order.
// An empty series means the history could not be fetched.
type PriceSeries struct {
	Symbol    string    `json:"symbol"`
	Bars      []OHLCV   `json:"bars"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Len returns the number of trading days in the series.
func (p PriceSeries) Len() int { return len(p.Bars) }

// Closes returns a fresh slice of closing prices.
func (p PriceSeries) Closes() []float64 {
	closes := make([]float64, len(p.Bars))
	for i, b := range p.Bars {
		closes[i] = b.Close
	}
	return closes
}

// DateAt returns the bar date at index i, or the zero time when out of range.
func (p PriceSeries) DateAt(i int) time.Time {
	if i < 0 || i >= len(p.Bars) {
		return time.Time{}
	}
	return p.Bars[i].Time
}
