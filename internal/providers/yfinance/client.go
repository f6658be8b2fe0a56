// Package yfinance provides a client for the Yahoo Finance chart API.
// It is the free, no-auth quote source and the designated fallback for
// stocks and forex.
package yfinance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"github.com/fincept/terminal/internal/common"
	"github.com/fincept/terminal/internal/interfaces"
	"github.com/fincept/terminal/internal/models"
)

const (
	Name = "yfinance"

	DefaultBaseURL   = "https://query1.finance.yahoo.com"
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 5 // requests per second
	maxRetries       = 3
)

// Info describes this provider for the registry.
var Info = models.ProviderInfo{
	Name:        Name,
	DisplayName: "Yahoo Finance",
	Transport:   "http",
	Supports: []models.DataType{
		models.DataTypeStocks,
		models.DataTypeForex,
		models.DataTypeCrypto,
	},
	RequiresAuth: false,
	RealTime:     false, // delayed quotes
}

// Client implements interfaces.Provider against the Yahoo chart endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Yahoo Finance client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yahoo finance API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// retryable reports whether the status code is worth a retry.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// get performs a rate-limited GET with bounded exponential backoff on
// transient failures (429, 5xx, network errors).
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.InitialInterval = 250 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			sleep := backoffCfg.NextBackOff()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sleep):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", "fincept-terminal/"+common.GetVersion())

		c.logger.Debug().Str("url", c.baseURL+path).Int("attempt", attempt+1).Msg("Yahoo Finance request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("failed to execute request: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = &APIError{
				StatusCode: resp.StatusCode,
				Message:    strings.TrimSpace(string(body)),
				Endpoint:   path,
			}
			if !retryable(resp.StatusCode) {
				return lastErr
			}
			continue
		}

		err = json.NewDecoder(resp.Body).Decode(result)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	return lastErr
}

// chartResponse mirrors the /v8/finance/chart payload.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Currency           string  `json:"currency"`
		Symbol             string  `json:"symbol"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
		PreviousClose      float64 `json:"previousClose"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []float64 `json:"open"`
			High   []float64 `json:"high"`
			Low    []float64 `json:"low"`
			Close  []float64 `json:"close"`
			Volume []int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// getChart fetches and validates a chart response for a Yahoo symbol.
func (c *Client) getChart(ctx context.Context, symbol, period, interval string) (*chartResult, error) {
	params := url.Values{}
	params.Set("range", period)
	params.Set("interval", interval)
	params.Set("includePrePost", "false")

	var resp chartResponse
	if err := c.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), params, &resp); err != nil {
		return nil, err
	}

	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("no data found for symbol %s: %s", symbol, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("no data found for symbol %s", symbol)
	}

	return &resp.Chart.Result[0], nil
}

// GetStockSeries retrieves OHLCV history for a stock symbol.
func (c *Client) GetStockSeries(ctx context.Context, symbol, period, interval string) (*models.StockSeries, error) {
	if period == "" {
		period = "1mo"
	}
	if interval == "" {
		interval = "1d"
	}

	result, err := c.getChart(ctx, symbol, period, interval)
	if err != nil {
		return nil, err
	}

	series := &models.StockSeries{
		Symbol:   symbol,
		Currency: result.Meta.Currency,
		Period:   period,
		Interval: interval,
	}

	if len(result.Indicators.Quote) > 0 {
		quote := result.Indicators.Quote[0]
		for i, ts := range result.Timestamp {
			bar := models.StockBar{Timestamp: time.Unix(ts, 0).UTC()}
			if i < len(quote.Open) {
				bar.Open = quote.Open[i]
			}
			if i < len(quote.High) {
				bar.High = quote.High[i]
			}
			if i < len(quote.Low) {
				bar.Low = quote.Low[i]
			}
			if i < len(quote.Close) {
				bar.Close = quote.Close[i]
			}
			if i < len(quote.Volume) {
				bar.Volume = quote.Volume[i]
			}
			series.Bars = append(series.Bars, bar)
		}
	}

	if len(series.Bars) == 0 {
		return nil, fmt.Errorf("no data found for symbol %s", symbol)
	}

	return series, nil
}

// GetForexRate retrieves the current rate for a currency pair like "EUR/USD".
func (c *Client) GetForexRate(ctx context.Context, pair string) (*models.ForexRate, error) {
	base, quote, err := splitPair(pair)
	if err != nil {
		return nil, err
	}

	symbol := base + quote + "=X"
	result, err := c.getChart(ctx, symbol, "1d", "1d")
	if err != nil {
		return nil, err
	}

	if result.Meta.RegularMarketPrice == 0 {
		return nil, fmt.Errorf("no data found for pair %s", pair)
	}

	return &models.ForexRate{
		Pair:      base + "/" + quote,
		Base:      base,
		Quote:     quote,
		Rate:      result.Meta.RegularMarketPrice,
		Timestamp: time.Now().UTC(),
	}, nil
}

// GetCryptoQuote retrieves the current USD price for a crypto symbol like "BTC".
func (c *Client) GetCryptoQuote(ctx context.Context, symbol string) (*models.CryptoQuote, error) {
	coin := strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(symbol)), "-USD")
	result, err := c.getChart(ctx, coin+"-USD", "1d", "1d")
	if err != nil {
		return nil, err
	}

	price := result.Meta.RegularMarketPrice
	if price == 0 {
		return nil, fmt.Errorf("no data found for symbol %s", symbol)
	}

	q := &models.CryptoQuote{
		Symbol:    coin,
		Currency:  "USD",
		Price:     price,
		Timestamp: time.Now().UTC(),
	}
	if prev := result.Meta.PreviousClose; prev > 0 {
		q.ChangePct24h = (price - prev) / prev * 100
	}
	return q, nil
}

// Name implements interfaces.Provider.
func (c *Client) Name() string {
	return Name
}

// Fetch implements interfaces.Provider by dispatching to the typed getters.
func (c *Client) Fetch(ctx context.Context, req interfaces.FetchRequest) (*interfaces.Payload, error) {
	switch req.DataType {
	case models.DataTypeStocks:
		series, err := c.GetStockSeries(ctx, req.Symbol, req.Period, req.Interval)
		if err != nil {
			return nil, err
		}
		return &interfaces.Payload{Stocks: series}, nil
	case models.DataTypeForex:
		fx, err := c.GetForexRate(ctx, req.Pair)
		if err != nil {
			return nil, err
		}
		return &interfaces.Payload{Forex: fx}, nil
	case models.DataTypeCrypto:
		q, err := c.GetCryptoQuote(ctx, req.Symbol)
		if err != nil {
			return nil, err
		}
		return &interfaces.Payload{Crypto: q}, nil
	default:
		return nil, fmt.Errorf("yfinance does not support data type %q", req.DataType)
	}
}

// Probe implements interfaces.Provider with a single lightweight chart call.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.getChart(ctx, "AAPL", "1d", "1d")
	return err
}

// splitPair normalizes "EUR/USD", "EUR-USD", or "EURUSD" into base and quote.
func splitPair(pair string) (string, string, error) {
	p := strings.ToUpper(strings.TrimSpace(pair))
	p = strings.ReplaceAll(p, "-", "/")
	if idx := strings.Index(p, "/"); idx > 0 {
		base, quote := p[:idx], p[idx+1:]
		if len(base) != 3 || len(quote) != 3 {
			return "", "", fmt.Errorf("invalid currency pair %q", pair)
		}
		return base, quote, nil
	}
	if len(p) == 6 {
		return p[:3], p[3:], nil
	}
	return "", "", fmt.Errorf("invalid currency pair %q", pair)
}

// Ensure Client implements Provider
var _ interfaces.Provider = (*Client)(nil)
