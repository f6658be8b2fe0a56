package datasource

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fincept/terminal/internal/common"
	"github.com/fincept/terminal/internal/interfaces"
	"github.com/fincept/terminal/internal/models"
)

// Default provider for each data type when nothing is persisted.
var defaultMappings = map[models.DataType]string{
	models.DataTypeStocks:   "yfinance",
	models.DataTypeForex:    "yfinance",
	models.DataTypeCrypto:   "yfinance",
	models.DataTypeNews:     "newsapi",
	models.DataTypeEconomic: "dbnomics",
}

// Fallback provider per data type when the primary fails. Crypto and
// economic data have no fallback: a primary failure is a failure.
var fallbackMappings = map[models.DataType]string{
	models.DataTypeStocks: "yfinance",
	models.DataTypeForex:  "yfinance",
	models.DataTypeNews:   "static",
}

const probeTimeout = 5 * time.Second

// Manager implements interfaces.DataSourceManager. It is safe for
// concurrent use; all I/O is synchronous on the calling goroutine.
type Manager struct {
	registry *Registry
	store    interfaces.SourceConfigStore
	cache    *ttlCache
	logger   *common.Logger
	now      func() time.Time

	mu       sync.RWMutex
	settings *models.SourceSettings

	provMu    sync.Mutex
	providers map[string]memoEntry

	errors    atomic.Uint64
	fallbacks atomic.Uint64
}

// memoEntry keys a constructed provider by its config hash so a credential
// change transparently rebuilds the instance.
type memoEntry struct {
	hash     string
	provider interfaces.Provider
}

var _ interfaces.DataSourceManager = (*Manager)(nil)

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager backed by the given registry and settings
// store. Persisted settings are loaded immediately; load failures are
// logged and replaced with defaults rather than raised.
func NewManager(registry *Registry, store interfaces.SourceConfigStore, logger *common.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = common.NewDefaultLogger()
	}

	m := &Manager{
		registry:  registry,
		store:     store,
		logger:    logger,
		now:       time.Now,
		providers: make(map[string]memoEntry),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.cache = newTTLCache(m.now)

	settings, err := store.Load()
	if err != nil {
		logger.Warn().Err(err).Str("path", store.Path()).
			Msg("Failed to load data source settings, using defaults")
		settings = models.NewSourceSettings()
	}
	for dt, provider := range defaultMappings {
		if _, ok := settings.DataMappings[dt]; !ok {
			settings.DataMappings[dt] = provider
		}
	}
	m.settings = settings

	logger.Info().
		Int("providers", len(registry.List())).
		Str("settings_path", store.Path()).
		Msg("Data source manager initialized")

	return m
}

// GetStockData returns OHLCV history for a symbol. Period defaults to
// "1mo" and interval to "1d".
func (m *Manager) GetStockData(ctx context.Context, symbol, period, interval string) *models.Result {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if period == "" {
		period = "1mo"
	}
	if interval == "" {
		interval = "1d"
	}

	key := fmt.Sprintf("stocks_%s_%s_%s", symbol, period, interval)
	return m.fetch(ctx, key, common.TTLStocks, interfaces.FetchRequest{
		DataType: models.DataTypeStocks,
		Symbol:   symbol,
		Period:   period,
		Interval: interval,
	})
}

// GetForexData returns the current exchange rate for a pair like "EUR/USD".
func (m *Manager) GetForexData(ctx context.Context, pair string) *models.Result {
	pair = strings.ToUpper(strings.TrimSpace(pair))

	key := fmt.Sprintf("forex_%s", pair)
	return m.fetch(ctx, key, common.TTLForex, interfaces.FetchRequest{
		DataType: models.DataTypeForex,
		Pair:     pair,
	})
}

// GetCryptoData returns the current quote for a crypto symbol like "BTC".
func (m *Manager) GetCryptoData(ctx context.Context, symbol string) *models.Result {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	key := fmt.Sprintf("crypto_%s", symbol)
	return m.fetch(ctx, key, common.TTLCrypto, interfaces.FetchRequest{
		DataType: models.DataTypeCrypto,
		Symbol:   symbol,
	})
}

// GetNews returns headlines for a category. Limit defaults to 10.
func (m *Manager) GetNews(ctx context.Context, category string, limit int) *models.Result {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		category = "business"
	}
	if limit <= 0 {
		limit = 10
	}

	key := fmt.Sprintf("news_%s_%d", category, limit)
	return m.fetch(ctx, key, common.TTLNews, interfaces.FetchRequest{
		DataType: models.DataTypeNews,
		Category: category,
		Limit:    limit,
	})
}

// GetEconomicData returns an economic indicator series.
func (m *Manager) GetEconomicData(ctx context.Context, indicator string) *models.Result {
	indicator = strings.TrimSpace(indicator)

	key := fmt.Sprintf("economic_%s", indicator)
	return m.fetch(ctx, key, common.TTLEconomic, interfaces.FetchRequest{
		DataType:  models.DataTypeEconomic,
		Indicator: indicator,
	})
}

// fetch runs the cache -> primary -> fallback pipeline shared by all
// getters. Provider failures never escape: they are logged, counted, and
// folded into a failure Result. Results are fully populated before they
// enter the cache and never written afterwards, so concurrent hits only
// ever read the shared struct.
func (m *Manager) fetch(ctx context.Context, key string, ttl time.Duration, req interfaces.FetchRequest) *models.Result {
	if cached, ok := m.cache.Get(key); ok {
		hit := *cached
		hit.Cached = true
		return &hit
	}

	primary := m.DataSource(req.DataType)

	res, primaryErr := m.fetchFrom(ctx, primary, req)
	if primaryErr == nil {
		m.cache.Set(key, res, ttl)
		return res
	}

	m.errors.Add(1)
	m.logger.Warn().Err(primaryErr).
		Str("provider", primary).
		Str("data_type", string(req.DataType)).
		Msg("Primary data source failed")

	fallback, ok := fallbackMappings[req.DataType]
	if ok && fallback != primary {
		res, fallbackErr := m.fetchFrom(ctx, fallback, req)
		if fallbackErr == nil {
			m.fallbacks.Add(1)
			m.logger.Info().
				Str("provider", fallback).
				Str("data_type", string(req.DataType)).
				Msg("Served from fallback data source")
			m.cache.Set(key, res, ttl)
			return res
		}
		m.errors.Add(1)
		m.logger.Warn().Err(fallbackErr).
			Str("provider", fallback).
			Str("data_type", string(req.DataType)).
			Msg("Fallback data source failed")
	}

	res = &models.Result{
		Success:   false,
		Source:    primary,
		Error:     primaryErr.Error(),
		FetchedAt: m.now(),
	}
	stampRequest(res, req)
	return res
}

// stampRequest echoes the normalized request identifiers onto a Result.
func stampRequest(res *models.Result, req interfaces.FetchRequest) {
	res.Symbol = req.Symbol
	res.Pair = req.Pair
	res.Category = req.Category
	res.Indicator = req.Indicator
}

// fetchFrom performs a single fetch against one named provider and wraps
// the payload in a success Result.
func (m *Manager) fetchFrom(ctx context.Context, name string, req interfaces.FetchRequest) (*models.Result, error) {
	provider, err := m.provider(name)
	if err != nil {
		return nil, err
	}

	payload, err := provider.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	res := &models.Result{
		Success:   true,
		Source:    name,
		FetchedAt: m.now(),
		Data:      payloadData(req.DataType, payload),
	}
	stampRequest(res, req)
	return res, nil
}

// payloadData selects the union field matching the data type.
func payloadData(dt models.DataType, payload *interfaces.Payload) any {
	switch dt {
	case models.DataTypeStocks:
		return payload.Stocks
	case models.DataTypeForex:
		return payload.Forex
	case models.DataTypeCrypto:
		return payload.Crypto
	case models.DataTypeNews:
		return payload.News
	case models.DataTypeEconomic:
		return payload.Economic
	default:
		return nil
	}
}

// provider returns a memoized provider instance, rebuilding it when the
// stored config for that provider has changed.
func (m *Manager) provider(name string) (interfaces.Provider, error) {
	cfg := m.sourceConfig(name)
	hash := cfg.Hash()

	m.provMu.Lock()
	defer m.provMu.Unlock()

	if entry, ok := m.providers[name]; ok && entry.hash == hash {
		return entry.provider, nil
	}

	p, err := m.registry.New(name, cfg)
	if err != nil {
		return nil, err
	}
	m.providers[name] = memoEntry{hash: hash, provider: p}
	return p, nil
}

func (m *Manager) sourceConfig(name string) models.SourceConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings.SourceConfigs[name]
}

// DataSource returns the provider currently mapped to a data type.
func (m *Manager) DataSource(dataType models.DataType) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if provider, ok := m.settings.DataMappings[dataType]; ok {
		return provider
	}
	return defaultMappings[dataType]
}

// SetDataSource maps a data type to a provider, optionally updating the
// provider's config, and persists the change. Unknown providers and
// unsupported data types are validation errors raised to the caller;
// persistence failures are logged and absorbed.
func (m *Manager) SetDataSource(dataType models.DataType, provider string, config *models.SourceConfig) error {
	if _, err := models.ParseDataType(string(dataType)); err != nil {
		return err
	}
	info, ok := m.registry.Info(provider)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	if !info.SupportsType(dataType) {
		return fmt.Errorf("%w: %s does not support %s", ErrUnsupportedDataType, provider, dataType)
	}

	m.mu.Lock()
	m.settings.DataMappings[dataType] = provider
	if config != nil {
		m.settings.SourceConfigs[provider] = *config
	}
	snapshot := m.settings.Clone()
	m.mu.Unlock()

	if err := m.store.Save(snapshot); err != nil {
		m.logger.Error().Err(err).Str("path", m.store.Path()).
			Msg("Failed to persist data source settings")
	}

	m.logger.Info().
		Str("data_type", string(dataType)).
		Str("provider", provider).
		Msg("Data source updated")

	return nil
}

// Providers returns all registered providers.
func (m *Manager) Providers() []models.ProviderInfo {
	return m.registry.List()
}

// Mappings returns a copy of the current data-type mappings.
func (m *Manager) Mappings() map[models.DataType]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[models.DataType]string, len(m.settings.DataMappings))
	for dt, provider := range m.settings.DataMappings {
		out[dt] = provider
	}
	return out
}

// TestDataSource probes a provider and reports success with a coarse
// latency bucket.
func (m *Manager) TestDataSource(ctx context.Context, provider string) *models.SourceTest {
	test := &models.SourceTest{
		Provider: provider,
		TestedAt: m.now(),
	}

	if _, ok := m.registry.Info(provider); !ok {
		test.Error = fmt.Sprintf("unknown provider %q", provider)
		return test
	}

	p, err := m.provider(provider)
	if err != nil {
		test.Error = err.Error()
		return test
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := m.now()
	if err := p.Probe(probeCtx); err != nil {
		test.Error = err.Error()
		return test
	}

	test.Success = true
	test.Latency = latencyBucket(m.now().Sub(start))
	return test
}

func latencyBucket(d time.Duration) string {
	switch {
	case d < 500*time.Millisecond:
		return "fast (<500ms)"
	case d < 2*time.Second:
		return "moderate (<2s)"
	default:
		return "slow (>=2s)"
	}
}

// ValidateConfiguration cross-checks the persisted mappings against the
// registry: unknown providers, unsupported data types, and missing
// credentials are reported as issues, never raised.
func (m *Manager) ValidateConfiguration() *models.ValidationReport {
	m.mu.RLock()
	settings := m.settings.Clone()
	m.mu.RUnlock()

	report := &models.ValidationReport{Valid: true}

	for _, dt := range models.AllDataTypes {
		provider, ok := settings.DataMappings[dt]
		if !ok {
			continue
		}

		info, known := m.registry.Info(provider)
		if !known {
			report.Issues = append(report.Issues, models.ValidationIssue{
				DataType: dt,
				Provider: provider,
				Problem:  "provider is not registered",
			})
			continue
		}
		if !info.SupportsType(dt) {
			report.Issues = append(report.Issues, models.ValidationIssue{
				DataType: dt,
				Provider: provider,
				Problem:  fmt.Sprintf("provider does not support %s data", dt),
			})
		}
		if info.RequiresAuth {
			cfg := settings.SourceConfigs[provider]
			if _, err := common.ResolveAPIKey(provider, cfg.APIKey); err != nil {
				report.Issues = append(report.Issues, models.ValidationIssue{
					DataType: dt,
					Provider: provider,
					Problem:  "API key not configured",
				})
			}
		}
	}

	report.Valid = len(report.Issues) == 0
	return report
}

// HealthCheck smoke-tests the cache and probes every currently mapped
// provider concurrently.
func (m *Manager) HealthCheck(ctx context.Context) *models.HealthReport {
	report := &models.HealthReport{
		Providers: make(map[string]string),
		CheckedAt: m.now(),
	}

	// Cache round-trip.
	probe := &models.Result{Success: true, Source: "healthcheck", FetchedAt: m.now()}
	m.cache.Set("healthcheck_probe", probe, time.Minute)
	if got, ok := m.cache.Get("healthcheck_probe"); ok && got.Source == "healthcheck" {
		report.CacheOK = true
	}
	m.cache.Clear("healthcheck_")

	names := make(map[string]struct{})
	for _, provider := range m.Mappings() {
		names[provider] = struct{}{}
	}

	var reportMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for name := range names {
		g.Go(func() error {
			status := "ok"
			p, err := m.provider(name)
			if err == nil {
				probeCtx, cancel := context.WithTimeout(gctx, probeTimeout)
				err = p.Probe(probeCtx)
				cancel()
			}
			if err != nil {
				status = err.Error()
			}
			reportMu.Lock()
			report.Providers[name] = status
			reportMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return report
}

// ClearCache removes cached entries for one data type, or all entries when
// dataType is empty. It returns the number of entries removed.
func (m *Manager) ClearCache(dataType models.DataType) int {
	prefix := ""
	if dataType != "" {
		prefix = string(dataType) + "_"
	}
	removed := m.cache.Clear(prefix)

	m.logger.Debug().
		Str("data_type", string(dataType)).
		Int("removed", removed).
		Msg("Cache cleared")

	return removed
}

// CacheStats returns cache counters plus provider error and fallback
// counts.
func (m *Manager) CacheStats() *models.CacheStats {
	stats := m.cache.Stats()
	stats.Errors = m.errors.Load()
	stats.Fallbacks = m.fallbacks.Load()
	return &stats
}
