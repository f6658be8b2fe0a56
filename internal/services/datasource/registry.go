// Package datasource implements the DataSourceManager: a single point of
// access that maps abstract data-type requests to pluggable providers, with
// a TTL cache, two-tier fallback, and usage statistics.
package datasource

import (
	"errors"
	"fmt"

	"github.com/fincept/terminal/internal/common"
	"github.com/fincept/terminal/internal/interfaces"
	"github.com/fincept/terminal/internal/models"
	"github.com/fincept/terminal/internal/providers/alphavantage"
	"github.com/fincept/terminal/internal/providers/dbnomics"
	"github.com/fincept/terminal/internal/providers/finceptapi"
	"github.com/fincept/terminal/internal/providers/newsapi"
	"github.com/fincept/terminal/internal/providers/static"
	"github.com/fincept/terminal/internal/providers/yfinance"
)

// Validation errors raised to callers of SetDataSource. Everything else the
// manager absorbs into failure envelopes.
var (
	ErrUnknownProvider     = errors.New("unknown provider")
	ErrUnsupportedDataType = errors.New("provider does not support data type")
)

// Factory constructs a provider instance from its source config.
type Factory func(cfg models.SourceConfig) (interfaces.Provider, error)

// Registry holds provider metadata and constructors. It is built once at
// startup and never mutated afterwards; credentials are attached separately
// via SourceConfig at instantiation time.
type Registry struct {
	infos     map[string]models.ProviderInfo
	factories map[string]Factory
	order     []string
}

// NewRegistry builds the registry of all known providers. Client defaults
// (base URLs, rate limits, timeouts, fallback API keys) come from the app
// config; per-provider SourceConfig overrides them.
func NewRegistry(appCfg *common.Config, logger *common.Logger) *Registry {
	r := &Registry{
		infos:     make(map[string]models.ProviderInfo),
		factories: make(map[string]Factory),
	}

	clients := appCfg.Clients

	r.register(yfinance.Info, func(cfg models.SourceConfig) (interfaces.Provider, error) {
		opts := []yfinance.ClientOption{
			yfinance.WithLogger(logger),
			yfinance.WithTimeout(clients.YFinance.GetTimeout()),
		}
		if clients.YFinance.RateLimit > 0 {
			opts = append(opts, yfinance.WithRateLimit(clients.YFinance.RateLimit))
		}
		if base := firstNonEmpty(cfg.BaseURL, clients.YFinance.BaseURL); base != "" {
			opts = append(opts, yfinance.WithBaseURL(base))
		}
		return yfinance.NewClient(opts...), nil
	})

	r.register(alphavantage.Info, func(cfg models.SourceConfig) (interfaces.Provider, error) {
		key, err := common.ResolveAPIKey(alphavantage.Name, firstNonEmpty(cfg.APIKey, clients.AlphaVantage.APIKey))
		if err != nil {
			return nil, fmt.Errorf("alpha_vantage requires an API key: %w", err)
		}
		opts := []alphavantage.ClientOption{
			alphavantage.WithLogger(logger),
			alphavantage.WithTimeout(clients.AlphaVantage.GetTimeout()),
		}
		if clients.AlphaVantage.RateLimit > 0 {
			opts = append(opts, alphavantage.WithRateLimit(clients.AlphaVantage.RateLimit))
		}
		if base := firstNonEmpty(cfg.BaseURL, clients.AlphaVantage.BaseURL); base != "" {
			opts = append(opts, alphavantage.WithBaseURL(base))
		}
		return alphavantage.NewClient(key, opts...), nil
	})

	r.register(newsapi.Info, func(cfg models.SourceConfig) (interfaces.Provider, error) {
		key, err := common.ResolveAPIKey(newsapi.Name, firstNonEmpty(cfg.APIKey, clients.NewsAPI.APIKey))
		if err != nil {
			return nil, fmt.Errorf("newsapi requires an API key: %w", err)
		}
		opts := []newsapi.ClientOption{
			newsapi.WithLogger(logger),
			newsapi.WithTimeout(clients.NewsAPI.GetTimeout()),
		}
		if clients.NewsAPI.RateLimit > 0 {
			opts = append(opts, newsapi.WithRateLimit(clients.NewsAPI.RateLimit))
		}
		if base := firstNonEmpty(cfg.BaseURL, clients.NewsAPI.BaseURL); base != "" {
			opts = append(opts, newsapi.WithBaseURL(base))
		}
		return newsapi.NewClient(key, opts...), nil
	})

	r.register(dbnomics.Info, func(cfg models.SourceConfig) (interfaces.Provider, error) {
		opts := []dbnomics.ClientOption{
			dbnomics.WithLogger(logger),
			dbnomics.WithTimeout(clients.DBnomics.GetTimeout()),
		}
		if base := firstNonEmpty(cfg.BaseURL, clients.DBnomics.BaseURL); base != "" {
			opts = append(opts, dbnomics.WithBaseURL(base))
		}
		return dbnomics.NewClient(opts...), nil
	})

	r.register(finceptapi.Info, func(cfg models.SourceConfig) (interfaces.Provider, error) {
		// The premium API is a stub; a missing key is tolerated until the
		// real integration lands.
		key, _ := common.ResolveAPIKey(finceptapi.Name, cfg.APIKey)
		return finceptapi.NewClient(key), nil
	})

	r.register(static.Info, func(_ models.SourceConfig) (interfaces.Provider, error) {
		return static.NewProvider(), nil
	})

	return r
}

func (r *Registry) register(info models.ProviderInfo, factory Factory) {
	r.infos[info.Name] = info
	r.factories[info.Name] = factory
	r.order = append(r.order, info.Name)
}

// Info returns the registry entry for a provider name.
func (r *Registry) Info(name string) (models.ProviderInfo, bool) {
	info, ok := r.infos[name]
	return info, ok
}

// List returns all provider infos in registration order.
func (r *Registry) List() []models.ProviderInfo {
	out := make([]models.ProviderInfo, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.infos[name])
	}
	return out
}

// New constructs a provider instance from its registered factory.
func (r *Registry) New(name string, cfg models.SourceConfig) (interfaces.Provider, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return factory(cfg)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
