// Package finceptapi is an explicit stub for the Fincept premium API.
// The upstream service is not live yet; this provider returns generated
// placeholder data so the rest of the pipeline can be exercised end to end.
// It is registered with transport "stub" so UIs can label it honestly.
package finceptapi

import (
	"context"
	"fmt"
	"time"

	"github.com/fincept/terminal/internal/interfaces"
	"github.com/fincept/terminal/internal/models"
	"github.com/fincept/terminal/internal/providers/static"
)

const Name = "fincept_api"

// Info describes this provider for the registry.
var Info = models.ProviderInfo{
	Name:         Name,
	DisplayName:  "Fincept Premium API",
	Transport:    "stub",
	Supports:     []models.DataType{models.DataTypeStocks, models.DataTypeNews},
	RequiresAuth: true,
	RealTime:     true,
}

// Client is the stub implementation. Data is delegated to the static
// generator; only the source labeling differs.
type Client struct {
	apiKey string
	gen    *static.Provider
}

// NewClient creates the stub client. The API key is accepted and ignored so
// configured credentials survive until the real integration lands.
func NewClient(apiKey string) *Client {
	return &Client{apiKey: apiKey, gen: static.NewProvider()}
}

// Name implements interfaces.Provider.
func (c *Client) Name() string {
	return Name
}

// Fetch implements interfaces.Provider.
func (c *Client) Fetch(ctx context.Context, req interfaces.FetchRequest) (*interfaces.Payload, error) {
	switch req.DataType {
	case models.DataTypeStocks, models.DataTypeNews:
		return c.gen.Fetch(ctx, req)
	default:
		return nil, fmt.Errorf("fincept_api does not support data type %q", req.DataType)
	}
}

// Probe implements interfaces.Provider. The stub is always reachable.
func (c *Client) Probe(_ context.Context) error {
	// Simulate a fast round trip so latency bucketing stays meaningful.
	time.Sleep(time.Millisecond)
	return nil
}

// Ensure Client implements Provider
var _ interfaces.Provider = (*Client)(nil)
