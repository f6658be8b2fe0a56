// Package alphavantage provides a client for the Alpha Vantage REST API.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/fincept/terminal/internal/common"
	"github.com/fincept/terminal/internal/interfaces"
	"github.com/fincept/terminal/internal/models"
)

const (
	Name = "alpha_vantage"

	DefaultBaseURL   = "https://www.alphavantage.co"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 1 // the free tier allows ~5 requests per minute
)

// Info describes this provider for the registry.
var Info = models.ProviderInfo{
	Name:        Name,
	DisplayName: "Alpha Vantage",
	Transport:   "http",
	Supports: []models.DataType{
		models.DataTypeStocks,
		models.DataTypeForex,
		models.DataTypeCrypto,
		models.DataTypeEconomic,
	},
	RequiresAuth: true,
	RealTime:     true,
}

// Client implements interfaces.Provider against Alpha Vantage.
type Client struct {
	baseURL    string
	apiKey     string
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

// NewClient creates a new Alpha Vantage client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
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
	Function   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("alpha vantage API error: %s (status: %d, function: %s)", e.Message, e.StatusCode, e.Function)
}

// get performs a rate-limited GET against /query with the given function.
// Alpha Vantage reports errors inside a 200 body ("Error Message" for bad
// requests, "Note"/"Information" for throttling) so the raw body is checked
// before decoding into result.
func (c *Client) get(ctx context.Context, function string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("function", function)
	params.Set("apikey", c.apiKey)

	reqURL := fmt.Sprintf("%s/query?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("function", function).Msg("Alpha Vantage request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body)), Function: function}
	}

	var apiMsg struct {
		ErrorMessage string `json:"Error Message"`
		Note         string `json:"Note"`
		Information  string `json:"Information"`
	}
	if err := json.Unmarshal(body, &apiMsg); err == nil {
		switch {
		case apiMsg.ErrorMessage != "":
			return &APIError{StatusCode: resp.StatusCode, Message: apiMsg.ErrorMessage, Function: function}
		case apiMsg.Note != "":
			return &APIError{StatusCode: http.StatusTooManyRequests, Message: apiMsg.Note, Function: function}
		case apiMsg.Information != "":
			return &APIError{StatusCode: http.StatusTooManyRequests, Message: apiMsg.Information, Function: function}
		}
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// GetStockSeries retrieves daily OHLCV history for a symbol.
// Alpha Vantage has no range parameter; the period is applied client-side
// and the interval is fixed at daily bars.
func (c *Client) GetStockSeries(ctx context.Context, symbol, period, interval string) (*models.StockSeries, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("outputsize", "compact")

	var resp struct {
		Series map[string]struct {
			Open   string `json:"1. open"`
			High   string `json:"2. high"`
			Low    string `json:"3. low"`
			Close  string `json:"4. close"`
			Volume string `json:"5. volume"`
		} `json:"Time Series (Daily)"`
	}
	if err := c.get(ctx, "TIME_SERIES_DAILY", params, &resp); err != nil {
		return nil, err
	}

	if len(resp.Series) == 0 {
		return nil, fmt.Errorf("no data found for symbol %s", symbol)
	}

	dates := make([]string, 0, len(resp.Series))
	for d := range resp.Series {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	cutoff := periodCutoff(period)

	series := &models.StockSeries{
		Symbol:   symbol,
		Period:   period,
		Interval: "1d",
	}
	for _, d := range dates {
		ts, err := time.Parse("2006-01-02", d)
		if err != nil {
			continue
		}
		if !cutoff.IsZero() && ts.Before(cutoff) {
			continue
		}
		raw := resp.Series[d]
		series.Bars = append(series.Bars, models.StockBar{
			Timestamp: ts.UTC(),
			Open:      parseFloat(raw.Open),
			High:      parseFloat(raw.High),
			Low:       parseFloat(raw.Low),
			Close:     parseFloat(raw.Close),
			Volume:    parseInt(raw.Volume),
		})
	}

	if len(series.Bars) == 0 {
		return nil, fmt.Errorf("no data found for symbol %s", symbol)
	}

	return series, nil
}

// GetForexRate retrieves the realtime exchange rate for a pair like "EUR/USD".
func (c *Client) GetForexRate(ctx context.Context, pair string) (*models.ForexRate, error) {
	base, quote, err := splitPair(pair)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("from_currency", base)
	params.Set("to_currency", quote)

	var resp exchangeRateResponse
	if err := c.get(ctx, "CURRENCY_EXCHANGE_RATE", params, &resp); err != nil {
		return nil, err
	}

	r := resp.Rate
	if r.ExchangeRate == "" {
		return nil, fmt.Errorf("no data found for pair %s", pair)
	}

	return &models.ForexRate{
		Pair:      base + "/" + quote,
		Base:      base,
		Quote:     quote,
		Rate:      parseFloat(r.ExchangeRate),
		Bid:       parseFloat(r.BidPrice),
		Ask:       parseFloat(r.AskPrice),
		Timestamp: parseRefreshed(r.LastRefreshed),
	}, nil
}

// GetCryptoQuote retrieves the USD exchange rate for a crypto symbol.
func (c *Client) GetCryptoQuote(ctx context.Context, symbol string) (*models.CryptoQuote, error) {
	coin := strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(symbol)), "-USD")

	params := url.Values{}
	params.Set("from_currency", coin)
	params.Set("to_currency", "USD")

	var resp exchangeRateResponse
	if err := c.get(ctx, "CURRENCY_EXCHANGE_RATE", params, &resp); err != nil {
		return nil, err
	}

	if resp.Rate.ExchangeRate == "" {
		return nil, fmt.Errorf("no data found for symbol %s", symbol)
	}

	return &models.CryptoQuote{
		Symbol:    coin,
		Currency:  "USD",
		Price:     parseFloat(resp.Rate.ExchangeRate),
		Timestamp: parseRefreshed(resp.Rate.LastRefreshed),
	}, nil
}

// exchangeRateResponse is shared by the forex and crypto endpoints.
type exchangeRateResponse struct {
	Rate struct {
		FromCurrency  string `json:"1. From_Currency Code"`
		ToCurrency    string `json:"3. To_Currency Code"`
		ExchangeRate  string `json:"5. Exchange Rate"`
		LastRefreshed string `json:"6. Last Refreshed"`
		BidPrice      string `json:"8. Bid Price"`
		AskPrice      string `json:"9. Ask Price"`
	} `json:"Realtime Currency Exchange Rate"`
}

// economicFunctions maps indicator names to Alpha Vantage functions.
var economicFunctions = map[string]string{
	"real_gdp":           "REAL_GDP",
	"cpi":                "CPI",
	"inflation":          "INFLATION",
	"unemployment":       "UNEMPLOYMENT",
	"federal_funds_rate": "FEDERAL_FUNDS_RATE",
	"treasury_yield":     "TREASURY_YIELD",
	"retail_sales":       "RETAIL_SALES",
}

// GetEconomicSeries retrieves a named US economic indicator series.
func (c *Client) GetEconomicSeries(ctx context.Context, indicator string) (*models.EconomicSeries, error) {
	function, ok := economicFunctions[strings.ToLower(strings.TrimSpace(indicator))]
	if !ok {
		return nil, fmt.Errorf("unknown economic indicator %q", indicator)
	}

	var resp struct {
		Name     string `json:"name"`
		Interval string `json:"interval"`
		Unit     string `json:"unit"`
		Data     []struct {
			Date  string `json:"date"`
			Value string `json:"value"`
		} `json:"data"`
	}
	if err := c.get(ctx, function, nil, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no data found for indicator %s", indicator)
	}

	series := &models.EconomicSeries{
		Indicator: indicator,
		Title:     resp.Name,
		Unit:      resp.Unit,
		Frequency: resp.Interval,
	}
	for _, p := range resp.Data {
		if p.Value == "" || p.Value == "." {
			continue
		}
		series.Points = append(series.Points, models.EconomicPoint{
			Date:  p.Date,
			Value: parseFloat(p.Value),
		})
	}

	return series, nil
}

// Name implements interfaces.Provider.
func (c *Client) Name() string {
	return Name
}

// Fetch implements interfaces.Provider.
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
	case models.DataTypeEconomic:
		series, err := c.GetEconomicSeries(ctx, req.Indicator)
		if err != nil {
			return nil, err
		}
		return &interfaces.Payload{Economic: series}, nil
	default:
		return nil, fmt.Errorf("alpha_vantage does not support data type %q", req.DataType)
	}
}

// Probe implements interfaces.Provider with a minimal exchange-rate call.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.GetForexRate(ctx, "EUR/USD")
	return err
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}

// parseRefreshed parses the "Last Refreshed" timestamp, which Alpha Vantage
// reports in UTC without a zone suffix.
func parseRefreshed(s string) time.Time {
	if ts, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return ts.UTC()
	}
	return time.Now().UTC()
}

// periodCutoff converts a period string like "1mo" or "1y" into the earliest
// bar date to keep. Zero time means no cutoff.
func periodCutoff(period string) time.Time {
	now := time.Now().UTC()
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "1d":
		return now.AddDate(0, 0, -1)
	case "5d":
		return now.AddDate(0, 0, -5)
	case "1mo", "":
		return now.AddDate(0, -1, 0)
	case "3mo":
		return now.AddDate(0, -3, 0)
	case "6mo":
		return now.AddDate(0, -6, 0)
	case "1y":
		return now.AddDate(-1, 0, 0)
	case "2y":
		return now.AddDate(-2, 0, 0)
	case "5y", "max":
		return time.Time{}
	default:
		return now.AddDate(0, -1, 0)
	}
}

// splitPair normalizes "EUR/USD" or "EURUSD" into base and quote currencies.
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
