// Package static provides a deterministic offline data generator. It needs
// no network or credentials, which makes it the zero-config default for news
// and the last-resort fallback when real providers are down.
package static

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/fincept/terminal/internal/interfaces"
	"github.com/fincept/terminal/internal/models"
)

const Name = "static"

// Info describes this provider for the registry.
var Info = models.ProviderInfo{
	Name:        Name,
	DisplayName: "Static Generator",
	Transport:   "generated",
	Supports: []models.DataType{
		models.DataTypeStocks,
		models.DataTypeForex,
		models.DataTypeCrypto,
		models.DataTypeNews,
		models.DataTypeEconomic,
	},
	RequiresAuth: false,
	RealTime:     false,
}

// Provider generates deterministic placeholder data. The same symbol always
// produces the same price path, so downstream snapshots are reproducible.
type Provider struct {
	now func() time.Time // injectable clock for testing
}

// NewProvider creates the generator.
func NewProvider() *Provider {
	return &Provider{now: time.Now}
}

// seedFor derives a stable seed from a key string.
func seedFor(key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(strings.ToUpper(strings.TrimSpace(key))))
	return int64(h.Sum64())
}

// basePrice maps a symbol to a stable price level between 10 and 510.
func basePrice(symbol string) float64 {
	rng := rand.New(rand.NewSource(seedFor(symbol)))
	return 10 + rng.Float64()*500
}

// GenerateStockSeries produces a deterministic random-walk OHLCV series.
func (p *Provider) GenerateStockSeries(symbol, period, interval string) *models.StockSeries {
	if period == "" {
		period = "1mo"
	}
	if interval == "" {
		interval = "1d"
	}

	bars := barsForPeriod(period)
	step := stepForInterval(interval)

	rng := rand.New(rand.NewSource(seedFor(symbol + "|" + period + "|" + interval)))
	price := basePrice(symbol)

	end := p.now().UTC().Truncate(step)
	series := &models.StockSeries{
		Symbol:   strings.ToUpper(strings.TrimSpace(symbol)),
		Currency: "USD",
		Period:   period,
		Interval: interval,
		Bars:     make([]models.StockBar, 0, bars),
	}

	for i := bars - 1; i >= 0; i-- {
		open := price
		drift := (rng.Float64() - 0.5) * 0.04 // +/- 2% per bar
		price = open * (1 + drift)
		high := open
		low := open
		if price > high {
			high = price
		}
		if price < low {
			low = price
		}
		high *= 1 + rng.Float64()*0.01
		low *= 1 - rng.Float64()*0.01

		series.Bars = append(series.Bars, models.StockBar{
			Timestamp: end.Add(-time.Duration(i) * step),
			Open:      round2(open),
			High:      round2(high),
			Low:       round2(low),
			Close:     round2(price),
			Volume:    int64(100000 + rng.Intn(900000)),
		})
	}

	return series
}

// GenerateForexRate produces a stable rate for a pair with a small spread.
func (p *Provider) GenerateForexRate(pair string) (*models.ForexRate, error) {
	clean := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(pair), "-", "/"))
	base, quote := "EUR", "USD"
	if idx := strings.Index(clean, "/"); idx > 0 && len(clean) == 7 {
		base, quote = clean[:idx], clean[idx+1:]
	} else if len(clean) == 6 {
		base, quote = clean[:3], clean[3:]
	} else if clean != "" {
		return nil, fmt.Errorf("invalid currency pair %q", pair)
	}

	rng := rand.New(rand.NewSource(seedFor(base + quote)))
	rate := 0.5 + rng.Float64()*1.5
	spread := rate * 0.0002

	return &models.ForexRate{
		Pair:      base + "/" + quote,
		Base:      base,
		Quote:     quote,
		Rate:      round4(rate),
		Bid:       round4(rate - spread),
		Ask:       round4(rate + spread),
		Timestamp: p.now().UTC(),
	}, nil
}

// GenerateCryptoQuote produces a stable crypto price snapshot.
func (p *Provider) GenerateCryptoQuote(symbol string) *models.CryptoQuote {
	coin := strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(symbol)), "-USD")
	rng := rand.New(rand.NewSource(seedFor("crypto|" + coin)))

	return &models.CryptoQuote{
		Symbol:       coin,
		Currency:     "USD",
		Price:        round2(100 + rng.Float64()*50000),
		ChangePct24h: round2((rng.Float64() - 0.5) * 10),
		Volume24h:    round2(rng.Float64() * 1e9),
		Timestamp:    p.now().UTC(),
	}
}

var headlineTemplates = []string{
	"Markets steady as %s sector awaits earnings",
	"Analysts split on %s outlook for the quarter",
	"%s stocks extend gains on upbeat guidance",
	"Investors rotate into %s names amid rate uncertainty",
	"Volatility returns to %s trading desks",
}

// GenerateNews produces deterministic placeholder headlines for a category.
func (p *Provider) GenerateNews(category string, limit int) []*models.NewsItem {
	cat := strings.ToLower(strings.TrimSpace(category))
	if cat == "" {
		cat = "business"
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	rng := rand.New(rand.NewSource(seedFor("news|" + cat)))
	now := p.now().UTC()

	items := make([]*models.NewsItem, 0, limit)
	for i := 0; i < limit; i++ {
		tmpl := headlineTemplates[rng.Intn(len(headlineTemplates))]
		items = append(items, &models.NewsItem{
			Title:       fmt.Sprintf(tmpl, capitalize(cat)),
			URL:         fmt.Sprintf("https://example.com/news/%s/%d", cat, i+1),
			Source:      "Fincept Wire",
			Category:    cat,
			PublishedAt: now.Add(-time.Duration(i) * time.Hour),
		})
	}
	return items
}

// GenerateEconomicSeries produces a smooth deterministic indicator series.
func (p *Provider) GenerateEconomicSeries(indicator string) *models.EconomicSeries {
	name := strings.TrimSpace(indicator)
	if name == "" {
		name = "gdp"
	}

	rng := rand.New(rand.NewSource(seedFor("econ|" + name)))
	value := 100 + rng.Float64()*100

	series := &models.EconomicSeries{
		Indicator: name,
		Title:     "Generated indicator: " + name,
		Frequency: "quarterly",
	}

	now := p.now().UTC()
	for i := 19; i >= 0; i-- {
		q := now.AddDate(0, -3*i, 0)
		value *= 1 + (rng.Float64()-0.45)*0.02
		series.Points = append(series.Points, models.EconomicPoint{
			Date:  fmt.Sprintf("%d-Q%d", q.Year(), (int(q.Month())-1)/3+1),
			Value: round2(value),
		})
	}
	return series
}

// Name implements interfaces.Provider.
func (p *Provider) Name() string {
	return Name
}

// Fetch implements interfaces.Provider.
func (p *Provider) Fetch(_ context.Context, req interfaces.FetchRequest) (*interfaces.Payload, error) {
	switch req.DataType {
	case models.DataTypeStocks:
		return &interfaces.Payload{Stocks: p.GenerateStockSeries(req.Symbol, req.Period, req.Interval)}, nil
	case models.DataTypeForex:
		fx, err := p.GenerateForexRate(req.Pair)
		if err != nil {
			return nil, err
		}
		return &interfaces.Payload{Forex: fx}, nil
	case models.DataTypeCrypto:
		return &interfaces.Payload{Crypto: p.GenerateCryptoQuote(req.Symbol)}, nil
	case models.DataTypeNews:
		return &interfaces.Payload{News: p.GenerateNews(req.Category, req.Limit)}, nil
	case models.DataTypeEconomic:
		return &interfaces.Payload{Economic: p.GenerateEconomicSeries(req.Indicator)}, nil
	default:
		return nil, fmt.Errorf("static does not support data type %q", req.DataType)
	}
}

// Probe implements interfaces.Provider. The generator is always available.
func (p *Provider) Probe(_ context.Context) error {
	return nil
}

func barsForPeriod(period string) int {
	switch strings.ToLower(period) {
	case "1d":
		return 1
	case "5d":
		return 5
	case "1mo":
		return 22
	case "3mo":
		return 66
	case "6mo":
		return 130
	case "1y":
		return 260
	default:
		return 22
	}
}

func stepForInterval(interval string) time.Duration {
	switch strings.ToLower(interval) {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "1h":
		return time.Hour
	default:
		return 24 * time.Hour
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Ensure Provider implements the contract
var _ interfaces.Provider = (*Provider)(nil)
