package models

import (
	"time"
)

// StockBar represents a single OHLCV bar.
type StockBar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// StockSeries holds price history for a symbol over a period/interval.
type StockSeries struct {
	Symbol   string     `json:"symbol"`
	Currency string     `json:"currency,omitempty"`
	Period   string     `json:"period"`
	Interval string     `json:"interval"`
	Bars     []StockBar `json:"bars"`
}

// Last returns the most recent bar, or nil when the series is empty.
func (s *StockSeries) Last() *StockBar {
	if len(s.Bars) == 0 {
		return nil
	}
	return &s.Bars[len(s.Bars)-1]
}

// ForexRate holds a currency pair exchange rate snapshot.
type ForexRate struct {
	Pair      string    `json:"pair"` // e.g. "EUR/USD"
	Base      string    `json:"base"`
	Quote     string    `json:"quote"`
	Rate      float64   `json:"rate"`
	Bid       float64   `json:"bid,omitempty"`
	Ask       float64   `json:"ask,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CryptoQuote holds a cryptocurrency price snapshot.
type CryptoQuote struct {
	Symbol       string    `json:"symbol"` // e.g. "BTC"
	Currency     string    `json:"currency"`
	Price        float64   `json:"price"`
	ChangePct24h float64   `json:"change_pct_24h"`
	Volume24h    float64   `json:"volume_24h,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewsItem represents a single news article.
type NewsItem struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Category    string    `json:"category,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// EconomicPoint is one observation in an economic indicator series.
type EconomicPoint struct {
	Date  string  `json:"date"` // period label, e.g. "2024-Q1" or "2024-03"
	Value float64 `json:"value"`
}

// EconomicSeries holds an economic indicator time series.
type EconomicSeries struct {
	Indicator string          `json:"indicator"`
	Title     string          `json:"title,omitempty"`
	Unit      string          `json:"unit,omitempty"`
	Frequency string          `json:"frequency,omitempty"`
	Points    []EconomicPoint `json:"points"`
}

// Result is the envelope returned by every data-type getter. Provider
// failures are reported here, never raised past the manager boundary.
type Result struct {
	Success   bool      `json:"success"`
	Source    string    `json:"source"`
	Error     string    `json:"error,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
	Cached    bool      `json:"cached"`

	// Data-type-specific request fields
	Symbol    string `json:"symbol,omitempty"`
	Pair      string `json:"pair,omitempty"`
	Category  string `json:"category,omitempty"`
	Indicator string `json:"indicator,omitempty"`

	Data any `json:"data,omitempty"`
}

// CSVImport is the outcome of a CSV import: row count plus the mapped
// columns. Logical fields whose mapped header was missing are listed in
// Skipped rather than failing the import.
type CSVImport struct {
	DataType   DataType             `json:"data_type"`
	Rows       int                  `json:"rows"`
	Timestamps []string             `json:"timestamps,omitempty"`
	Values     map[string][]float64 `json:"values,omitempty"`
	Skipped    []string             `json:"skipped,omitempty"`
}
