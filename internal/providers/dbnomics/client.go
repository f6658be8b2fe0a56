// Package dbnomics provides a client for the DBnomics series API, the
// no-auth source for economic indicator time series.
package dbnomics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/fincept/terminal/internal/common"
	"github.com/fincept/terminal/internal/interfaces"
	"github.com/fincept/terminal/internal/models"
)

const (
	Name = "dbnomics"

	DefaultBaseURL   = "https://api.db.nomics.world/v22"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 2

	// probeSeries is a stable, long-lived series used for connectivity checks.
	probeSeries = "OECD/KEI/NAEXKP01.USA.GP.Q"
)

// Info describes this provider for the registry.
var Info = models.ProviderInfo{
	Name:         Name,
	DisplayName:  "DBnomics",
	Transport:    "http",
	Supports:     []models.DataType{models.DataTypeEconomic},
	RequiresAuth: false,
	RealTime:     false,
}

// Client implements interfaces.Provider against DBnomics.
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

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new DBnomics client
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
	SeriesID   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dbnomics API error: %s (status: %d, series: %s)", e.Message, e.StatusCode, e.SeriesID)
}

// seriesResponse mirrors the /series/{provider}/{dataset}/{series} payload.
type seriesResponse struct {
	Series struct {
		Docs []struct {
			SeriesCode string    `json:"series_code"`
			SeriesName string    `json:"series_name"`
			Frequency  string    `json:"@frequency"`
			Period     []string  `json:"period"`
			Value      []float64 `json:"value"`
		} `json:"docs"`
	} `json:"series"`
}

// GetSeries retrieves a series identified as "provider/dataset/series_code".
func (c *Client) GetSeries(ctx context.Context, seriesID string) (*models.EconomicSeries, error) {
	id := strings.Trim(strings.TrimSpace(seriesID), "/")
	if strings.Count(id, "/") != 2 {
		return nil, fmt.Errorf("invalid series id %q: want provider/dataset/series", seriesID)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	parts := strings.SplitN(id, "/", 3)
	reqURL := fmt.Sprintf("%s/series/%s/%s/%s?observations=1",
		c.baseURL, url.PathEscape(parts[0]), url.PathEscape(parts[1]), url.PathEscape(parts[2]))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("series", id).Msg("DBnomics request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			SeriesID:   id,
		}
	}

	var data seriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(data.Series.Docs) == 0 {
		return nil, fmt.Errorf("no data found for indicator %s", seriesID)
	}

	doc := data.Series.Docs[0]
	series := &models.EconomicSeries{
		Indicator: id,
		Title:     doc.SeriesName,
		Frequency: doc.Frequency,
	}
	for i, period := range doc.Period {
		if i >= len(doc.Value) {
			break
		}
		series.Points = append(series.Points, models.EconomicPoint{
			Date:  period,
			Value: doc.Value[i],
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
	if req.DataType != models.DataTypeEconomic {
		return nil, fmt.Errorf("dbnomics does not support data type %q", req.DataType)
	}
	series, err := c.GetSeries(ctx, req.Indicator)
	if err != nil {
		return nil, err
	}
	return &interfaces.Payload{Economic: series}, nil
}

// Probe implements interfaces.Provider.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.GetSeries(ctx, probeSeries)
	return err
}

// Ensure Client implements Provider
var _ interfaces.Provider = (*Client)(nil)
