// Package interfaces defines service contracts for the Fincept terminal server.
package interfaces

import (
	"context"

	"github.com/fincept/terminal/internal/models"
)

// FetchRequest carries the parameters of a single data fetch. Which fields
// are meaningful depends on DataType.
type FetchRequest struct {
	DataType models.DataType

	// Stocks / crypto
	Symbol   string
	Period   string // e.g. "1d", "5d", "1mo", "1y"
	Interval string // e.g. "1m", "5m", "1d"

	// Forex
	Pair string // e.g. "EUR/USD"

	// News
	Category string
	Limit    int

	// Economic
	Indicator string // e.g. "OECD/KEI/NAEXKP01.AUS.GP.Q"
}

// Payload is the normalized union of provider responses; exactly one field
// is set, matching the request's data type.
type Payload struct {
	Stocks   *models.StockSeries
	Forex    *models.ForexRate
	Crypto   *models.CryptoQuote
	News     []*models.NewsItem
	Economic *models.EconomicSeries
}

// Provider is a concrete data source. Implementations perform synchronous,
// blocking I/O on the calling goroutine; per-call timeouts come from the
// request context and the provider's own HTTP client.
type Provider interface {
	// Name returns the registry name, e.g. "yfinance".
	Name() string

	// Fetch retrieves data for the request. A request for a data type the
	// provider does not support returns an error.
	Fetch(ctx context.Context, req FetchRequest) (*Payload, error)

	// Probe performs a lightweight round-trip call to verify connectivity.
	Probe(ctx context.Context) error
}
