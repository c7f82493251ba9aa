package model

// CapLabel buckets an instrument by market capitalisation.
type CapLabel string

const (
	CapMega    CapLabel = "Mega"
	CapLarge   CapLabel = "Large"
	CapMedium  CapLabel = "Medium"
	CapSmall   CapLabel = "Small"
	CapMicro   CapLabel = "Micro"
	CapNano    CapLabel = "Nano"
	CapUnknown CapLabel = "unknown"
)

// Instrument is one row of the analysis universe.
type Instrument struct {
	Symbol    string
	MarketCap float64
	Industry  string
	Label     CapLabel
}

// InstrumentData holds the already-fetched inputs of one instrument.
type InstrumentData struct {
	Instrument Instrument
	Prices     PriceSeries
	Metrics    []SparseMetricSeries // sorted by name
}
