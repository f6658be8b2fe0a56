package datasource

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fincept/terminal/internal/common"
	"github.com/fincept/terminal/internal/interfaces"
	"github.com/fincept/terminal/internal/models"
)

type fakeProvider struct {
	name       string
	payload    *interfaces.Payload
	fetchErr   error
	probeErr   error
	fetchCalls atomic.Int64
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Fetch(_ context.Context, _ interfaces.FetchRequest) (*interfaces.Payload, error) {
	p.fetchCalls.Add(1)
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	return p.payload, nil
}

func (p *fakeProvider) Probe(_ context.Context) error { return p.probeErr }

type fakeStore struct {
	settings *models.SourceSettings
	loadErr  error
	saveErr  error
	saved    []*models.SourceSettings
}

func (s *fakeStore) Load() (*models.SourceSettings, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.settings == nil {
		return models.NewSourceSettings(), nil
	}
	return s.settings.Clone(), nil
}

func (s *fakeStore) Save(settings *models.SourceSettings) error {
	s.saved = append(s.saved, settings)
	return s.saveErr
}

func (s *fakeStore) Path() string { return "/tmp/data_sources.json" }

// testRegistry registers fake providers under the production names, with
// factory call counting so memoization can be asserted.
type testRegistry struct {
	*Registry
	factoryCalls map[string]int
}

func newTestRegistry(providers map[string]*fakeProvider) *testRegistry {
	supports := map[string][]models.DataType{
		"yfinance":      {models.DataTypeStocks, models.DataTypeForex, models.DataTypeCrypto},
		"alpha_vantage": {models.DataTypeStocks, models.DataTypeForex, models.DataTypeCrypto, models.DataTypeEconomic},
		"newsapi":       {models.DataTypeNews},
		"dbnomics":      {models.DataTypeEconomic},
		"static":        models.AllDataTypes,
	}
	requiresAuth := map[string]bool{"alpha_vantage": true, "newsapi": true}

	tr := &testRegistry{
		Registry: &Registry{
			infos:     make(map[string]models.ProviderInfo),
			factories: make(map[string]Factory),
		},
		factoryCalls: make(map[string]int),
	}
	for name, p := range providers {
		tr.Registry.register(models.ProviderInfo{
			Name:         name,
			DisplayName:  name,
			Transport:    "http",
			Supports:     supports[name],
			RequiresAuth: requiresAuth[name],
		}, func(_ models.SourceConfig) (interfaces.Provider, error) {
			tr.factoryCalls[p.name]++
			return p, nil
		})
	}
	return tr
}

func stockPayload(symbol string) *interfaces.Payload {
	return &interfaces.Payload{
		Stocks: &models.StockSeries{
			Symbol:   symbol,
			Period:   "1mo",
			Interval: "1d",
			Bars:     []models.StockBar{{Close: 187.5, Volume: 1000}},
		},
	}
}

func newTestManager(t *testing.T, providers map[string]*fakeProvider) (*Manager, *fakeStore, *fakeClock) {
	t.Helper()
	store := &fakeStore{}
	clock := newFakeClock()
	reg := newTestRegistry(providers)
	m := NewManager(reg.Registry, store, common.NewSilentLogger(), WithClock(clock.Now))
	return m, store, clock
}

func TestManagerDefaultMappings(t *testing.T) {
	m, _, _ := newTestManager(t, map[string]*fakeProvider{
		"yfinance": {name: "yfinance"},
	})

	assert.Equal(t, "yfinance", m.DataSource(models.DataTypeStocks))
	assert.Equal(t, "yfinance", m.DataSource(models.DataTypeForex))
	assert.Equal(t, "yfinance", m.DataSource(models.DataTypeCrypto))
	assert.Equal(t, "newsapi", m.DataSource(models.DataTypeNews))
	assert.Equal(t, "dbnomics", m.DataSource(models.DataTypeEconomic))
}

func TestManagerLoadFailureFallsBackToDefaults(t *testing.T) {
	store := &fakeStore{loadErr: errors.New("corrupt file")}
	reg := newTestRegistry(map[string]*fakeProvider{"yfinance": {name: "yfinance"}})
	m := NewManager(reg.Registry, store, common.NewSilentLogger())

	assert.Equal(t, "yfinance", m.DataSource(models.DataTypeStocks))
}

func TestManagerGetStockData(t *testing.T) {
	yf := &fakeProvider{name: "yfinance", payload: stockPayload("AAPL")}
	m, _, _ := newTestManager(t, map[string]*fakeProvider{"yfinance": yf})

	res := m.GetStockData(context.Background(), "aapl", "", "")
	require.True(t, res.Success)
	assert.Equal(t, "yfinance", res.Source)
	assert.Equal(t, "AAPL", res.Symbol)
	assert.False(t, res.Cached)

	series, ok := res.Data.(*models.StockSeries)
	require.True(t, ok)
	assert.Equal(t, "AAPL", series.Symbol)
}

func TestManagerCacheHit(t *testing.T) {
	yf := &fakeProvider{name: "yfinance", payload: stockPayload("AAPL")}
	m, _, clock := newTestManager(t, map[string]*fakeProvider{"yfinance": yf})

	first := m.GetStockData(context.Background(), "AAPL", "1mo", "1d")
	assert.False(t, first.Cached)

	second := m.GetStockData(context.Background(), "AAPL", "1mo", "1d")
	assert.True(t, second.Cached)
	assert.Equal(t, int64(1), yf.fetchCalls.Load(), "second call should be served from cache")

	// Different parameters miss the cache.
	m.GetStockData(context.Background(), "AAPL", "5d", "1h")
	assert.Equal(t, int64(2), yf.fetchCalls.Load())

	// Stock entries expire after a minute.
	clock.Advance(common.TTLStocks + time.Second)
	third := m.GetStockData(context.Background(), "AAPL", "1mo", "1d")
	assert.False(t, third.Cached)
	assert.Equal(t, int64(3), yf.fetchCalls.Load())
}

func TestManagerConcurrentGetStockData(t *testing.T) {
	yf := &fakeProvider{name: "yfinance", payload: stockPayload("AAPL")}
	m, _, _ := newTestManager(t, map[string]*fakeProvider{"yfinance": yf})

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := m.GetStockData(context.Background(), "AAPL", "1mo", "1d")
			assert.True(t, res.Success)
			assert.Equal(t, "AAPL", res.Symbol)
		}()
	}
	wg.Wait()

	// Whichever call populated the cache, the shared entry must carry the
	// request identifiers already.
	cached := m.GetStockData(context.Background(), "AAPL", "1mo", "1d")
	assert.True(t, cached.Cached)
	assert.Equal(t, "AAPL", cached.Symbol)
}

func TestManagerFallback(t *testing.T) {
	av := &fakeProvider{name: "alpha_vantage", fetchErr: errors.New("rate limited")}
	yf := &fakeProvider{name: "yfinance", payload: stockPayload("AAPL")}
	m, _, _ := newTestManager(t, map[string]*fakeProvider{
		"alpha_vantage": av,
		"yfinance":      yf,
	})
	require.NoError(t, m.SetDataSource(models.DataTypeStocks, "alpha_vantage", nil))

	res := m.GetStockData(context.Background(), "AAPL", "1mo", "1d")
	require.True(t, res.Success)
	assert.Equal(t, "yfinance", res.Source, "should fall back to yfinance")

	stats := m.CacheStats()
	assert.Equal(t, uint64(1), stats.Errors)
	assert.Equal(t, uint64(1), stats.Fallbacks)
}

func TestManagerNoFallbackForEconomic(t *testing.T) {
	db := &fakeProvider{name: "dbnomics", fetchErr: errors.New("connection refused")}
	m, _, _ := newTestManager(t, map[string]*fakeProvider{"dbnomics": db})

	res := m.GetEconomicData(context.Background(), "OECD/KEI/NAEXKP01.USA.GP.Q")
	assert.False(t, res.Success)
	assert.Equal(t, "dbnomics", res.Source)
	assert.Contains(t, res.Error, "connection refused")
	assert.Equal(t, "OECD/KEI/NAEXKP01.USA.GP.Q", res.Indicator)
}

func TestManagerFailureNotCached(t *testing.T) {
	db := &fakeProvider{name: "dbnomics", fetchErr: errors.New("boom")}
	m, _, _ := newTestManager(t, map[string]*fakeProvider{"dbnomics": db})

	m.GetEconomicData(context.Background(), "cpi")
	m.GetEconomicData(context.Background(), "cpi")
	assert.Equal(t, int64(2), db.fetchCalls.Load(), "failures must not be cached")
}

func TestManagerNewsFallsBackToStatic(t *testing.T) {
	news := &fakeProvider{name: "newsapi", fetchErr: errors.New("invalid api key")}
	static := &fakeProvider{name: "static", payload: &interfaces.Payload{
		News: []*models.NewsItem{{Title: "Markets rally", Source: "Fincept Wire"}},
	}}
	m, _, _ := newTestManager(t, map[string]*fakeProvider{
		"newsapi": news,
		"static":  static,
	})

	res := m.GetNews(context.Background(), "business", 5)
	require.True(t, res.Success)
	assert.Equal(t, "static", res.Source)
	assert.Equal(t, "business", res.Category)
}

func TestManagerSetDataSourceValidation(t *testing.T) {
	m, store, _ := newTestManager(t, map[string]*fakeProvider{
		"yfinance": {name: "yfinance"},
		"newsapi":  {name: "newsapi"},
	})

	err := m.SetDataSource(models.DataTypeStocks, "bloomberg", nil)
	assert.ErrorIs(t, err, ErrUnknownProvider)

	err = m.SetDataSource(models.DataTypeStocks, "newsapi", nil)
	assert.ErrorIs(t, err, ErrUnsupportedDataType)

	err = m.SetDataSource(models.DataType("weather"), "yfinance", nil)
	assert.Error(t, err)

	assert.Empty(t, store.saved, "invalid updates must not be persisted")
}

func TestManagerSetDataSourcePersists(t *testing.T) {
	m, store, _ := newTestManager(t, map[string]*fakeProvider{
		"yfinance":      {name: "yfinance"},
		"alpha_vantage": {name: "alpha_vantage"},
	})

	cfg := &models.SourceConfig{APIKey: "demo"}
	require.NoError(t, m.SetDataSource(models.DataTypeForex, "alpha_vantage", cfg))

	assert.Equal(t, "alpha_vantage", m.DataSource(models.DataTypeForex))
	require.Len(t, store.saved, 1)
	assert.Equal(t, "alpha_vantage", store.saved[0].DataMappings[models.DataTypeForex])
	assert.Equal(t, "demo", store.saved[0].SourceConfigs["alpha_vantage"].APIKey)
}

func TestManagerSetDataSourceAbsorbsSaveFailure(t *testing.T) {
	m, store, _ := newTestManager(t, map[string]*fakeProvider{
		"yfinance": {name: "yfinance"},
		"static":   {name: "static"},
	})
	store.saveErr = errors.New("disk full")

	err := m.SetDataSource(models.DataTypeNews, "static", nil)
	assert.NoError(t, err, "persistence failures are logged, not raised")
	assert.Equal(t, "static", m.DataSource(models.DataTypeNews))
}

func TestManagerProviderMemoization(t *testing.T) {
	yf := &fakeProvider{name: "yfinance", payload: stockPayload("AAPL")}
	store := &fakeStore{}
	reg := newTestRegistry(map[string]*fakeProvider{"yfinance": yf})
	m := NewManager(reg.Registry, store, common.NewSilentLogger())

	m.GetStockData(context.Background(), "AAPL", "1d", "1m")
	m.GetStockData(context.Background(), "MSFT", "1d", "1m")
	assert.Equal(t, 1, reg.factoryCalls["yfinance"], "provider instance should be reused")

	// A config change invalidates the memoized instance.
	require.NoError(t, m.SetDataSource(models.DataTypeStocks, "yfinance", &models.SourceConfig{BaseURL: "http://proxy.local"}))
	m.GetStockData(context.Background(), "GOOG", "1d", "1m")
	assert.Equal(t, 2, reg.factoryCalls["yfinance"])
}

func TestManagerTestDataSource(t *testing.T) {
	m, _, _ := newTestManager(t, map[string]*fakeProvider{
		"yfinance": {name: "yfinance"},
		"newsapi":  {name: "newsapi", probeErr: errors.New("401 unauthorized")},
	})

	test := m.TestDataSource(context.Background(), "yfinance")
	assert.True(t, test.Success)
	assert.Equal(t, "fast (<500ms)", test.Latency)

	test = m.TestDataSource(context.Background(), "newsapi")
	assert.False(t, test.Success)
	assert.Contains(t, test.Error, "401")

	test = m.TestDataSource(context.Background(), "bloomberg")
	assert.False(t, test.Success)
	assert.Contains(t, test.Error, "unknown provider")
}

func TestLatencyBucket(t *testing.T) {
	assert.Equal(t, "fast (<500ms)", latencyBucket(120*time.Millisecond))
	assert.Equal(t, "moderate (<2s)", latencyBucket(900*time.Millisecond))
	assert.Equal(t, "slow (>=2s)", latencyBucket(3*time.Second))
}

func TestManagerValidateConfiguration(t *testing.T) {
	t.Setenv("NEWSAPI_API_KEY", "")
	t.Setenv("FINCEPT_NEWSAPI_API_KEY", "")

	m, _, _ := newTestManager(t, map[string]*fakeProvider{
		"yfinance": {name: "yfinance"},
		"newsapi":  {name: "newsapi"},
		"dbnomics": {name: "dbnomics"},
	})

	report := m.ValidateConfiguration()
	assert.False(t, report.Valid)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "newsapi", report.Issues[0].Provider)
	assert.Contains(t, report.Issues[0].Problem, "API key")

	// Configuring the key clears the issue.
	require.NoError(t, m.SetDataSource(models.DataTypeNews, "newsapi", &models.SourceConfig{APIKey: "secret"}))
	report = m.ValidateConfiguration()
	assert.True(t, report.Valid)
}

func TestManagerValidateConfigurationUnknownProvider(t *testing.T) {
	store := &fakeStore{settings: &models.SourceSettings{
		DataMappings:  map[models.DataType]string{models.DataTypeStocks: "bloomberg"},
		SourceConfigs: map[string]models.SourceConfig{},
	}}
	reg := newTestRegistry(map[string]*fakeProvider{"yfinance": {name: "yfinance"}})
	m := NewManager(reg.Registry, store, common.NewSilentLogger())

	report := m.ValidateConfiguration()
	assert.False(t, report.Valid)
	require.NotEmpty(t, report.Issues)
	assert.Equal(t, "bloomberg", report.Issues[0].Provider)
	assert.Contains(t, report.Issues[0].Problem, "not registered")
}

func TestManagerHealthCheck(t *testing.T) {
	m, _, _ := newTestManager(t, map[string]*fakeProvider{
		"yfinance": {name: "yfinance"},
		"newsapi":  {name: "newsapi", probeErr: errors.New("timeout")},
		"dbnomics": {name: "dbnomics"},
	})

	report := m.HealthCheck(context.Background())
	assert.True(t, report.CacheOK)
	assert.Equal(t, "ok", report.Providers["yfinance"])
	assert.Equal(t, "ok", report.Providers["dbnomics"])
	assert.Equal(t, "timeout", report.Providers["newsapi"])
}

func TestManagerClearCache(t *testing.T) {
	yf := &fakeProvider{name: "yfinance", payload: stockPayload("AAPL")}
	m, _, _ := newTestManager(t, map[string]*fakeProvider{"yfinance": yf})

	m.GetStockData(context.Background(), "AAPL", "1mo", "1d")
	m.GetStockData(context.Background(), "MSFT", "1mo", "1d")

	removed := m.ClearCache(models.DataTypeForex)
	assert.Equal(t, 0, removed)

	removed = m.ClearCache(models.DataTypeStocks)
	assert.Equal(t, 2, removed)

	res := m.GetStockData(context.Background(), "AAPL", "1mo", "1d")
	assert.False(t, res.Cached)
}

func TestManagerCacheStats(t *testing.T) {
	yf := &fakeProvider{name: "yfinance", payload: stockPayload("AAPL")}
	m, _, _ := newTestManager(t, map[string]*fakeProvider{"yfinance": yf})

	m.GetStockData(context.Background(), "AAPL", "1mo", "1d")
	m.GetStockData(context.Background(), "AAPL", "1mo", "1d")

	stats := m.CacheStats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Items)
	assert.Equal(t, 1, stats.ByType["stocks"])
}

func TestManagerMappingsIsACopy(t *testing.T) {
	m, _, _ := newTestManager(t, map[string]*fakeProvider{"yfinance": {name: "yfinance"}})

	mappings := m.Mappings()
	mappings[models.DataTypeStocks] = "mutated"

	assert.Equal(t, "yfinance", m.DataSource(models.DataTypeStocks))
}
