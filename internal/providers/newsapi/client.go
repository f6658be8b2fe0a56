// Package newsapi provides a client for the NewsAPI.org top-headlines API.
package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/fincept/terminal/internal/common"
	"github.com/fincept/terminal/internal/interfaces"
	"github.com/fincept/terminal/internal/models"
)

const (
	Name = "newsapi"

	DefaultBaseURL   = "https://newsapi.org/v2"
	DefaultTimeout   = 20 * time.Second
	DefaultRateLimit = 2
	DefaultPageSize  = 20
)

// validCategories are the categories NewsAPI accepts for top headlines.
var validCategories = map[string]bool{
	"business":      true,
	"entertainment": true,
	"general":       true,
	"health":        true,
	"science":       true,
	"sports":        true,
	"technology":    true,
}

// Info describes this provider for the registry.
var Info = models.ProviderInfo{
	Name:         Name,
	DisplayName:  "NewsAPI.org",
	Transport:    "http",
	Supports:     []models.DataType{models.DataTypeNews},
	RequiresAuth: true,
	RealTime:     true,
}

// Client implements interfaces.Provider against NewsAPI.
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

// NewClient creates a new NewsAPI client
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
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("newsapi error: %s (status: %d, code: %s)", e.Message, e.StatusCode, e.Code)
}

// headlinesResponse mirrors the /top-headlines payload.
type headlinesResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// GetHeadlines retrieves top headlines for a category. An empty or unknown
// category falls back to "business" — this is a financial terminal.
func (c *Client) GetHeadlines(ctx context.Context, category string, limit int) ([]*models.NewsItem, error) {
	cat := strings.ToLower(strings.TrimSpace(category))
	if !validCategories[cat] {
		cat = "business"
	}
	if limit <= 0 || limit > 100 {
		limit = DefaultPageSize
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("category", cat)
	params.Set("pageSize", strconv.Itoa(limit))
	params.Set("language", "en")

	reqURL := fmt.Sprintf("%s/top-headlines?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	c.logger.Debug().Str("category", cat).Msg("NewsAPI request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var data headlinesResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if data.Status != "ok" {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Code:       data.Code,
			Message:    data.Message,
		}
	}

	items := make([]*models.NewsItem, 0, len(data.Articles))
	for _, a := range data.Articles {
		publishedAt, _ := time.Parse(time.RFC3339, a.PublishedAt)
		items = append(items, &models.NewsItem{
			Title:       a.Title,
			URL:         a.URL,
			Source:      a.Source.Name,
			Category:    cat,
			Summary:     a.Description,
			PublishedAt: publishedAt,
		})
	}

	return items, nil
}

// Name implements interfaces.Provider.
func (c *Client) Name() string {
	return Name
}

// Fetch implements interfaces.Provider.
func (c *Client) Fetch(ctx context.Context, req interfaces.FetchRequest) (*interfaces.Payload, error) {
	if req.DataType != models.DataTypeNews {
		return nil, fmt.Errorf("newsapi does not support data type %q", req.DataType)
	}
	items, err := c.GetHeadlines(ctx, req.Category, req.Limit)
	if err != nil {
		return nil, err
	}
	return &interfaces.Payload{News: items}, nil
}

// Probe implements interfaces.Provider with a single-article request.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.GetHeadlines(ctx, "business", 1)
	return err
}

// Ensure Client implements Provider
var _ interfaces.Provider = (*Client)(nil)
