package alphavantage

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const exchangeRateBody = `{
	"Realtime Currency Exchange Rate": {
		"1. From_Currency Code": "EUR",
		"3. To_Currency Code": "USD",
		"5. Exchange Rate": "1.08420000",
		"6. Last Refreshed": "2025-06-01 12:00:00",
		"8. Bid Price": "1.08410000",
		"9. Ask Price": "1.08430000"
	}
}`

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient("testkey", WithBaseURL(server.URL), WithRateLimit(100))
	return client, server
}

func dailySeriesBody() string {
	now := time.Now().UTC()
	d1 := now.AddDate(0, 0, -2).Format("2006-01-02")
	d2 := now.AddDate(0, 0, -1).Format("2006-01-02")
	return fmt.Sprintf(`{
		"Time Series (Daily)": {
			"%s": {"1. open": "100.0", "2. high": "102.5", "3. low": "99.1", "4. close": "101.2", "5. volume": "1500000"},
			"%s": {"1. open": "101.2", "2. high": "103.0", "3. low": "100.8", "4. close": "102.9", "5. volume": "1320000"}
		}
	}`, d1, d2)
}

func TestGetStockSeries(t *testing.T) {
	var capturedFunction, capturedSymbol, capturedKey string
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		capturedFunction = r.URL.Query().Get("function")
		capturedSymbol = r.URL.Query().Get("symbol")
		capturedKey = r.URL.Query().Get("apikey")
		w.Write([]byte(dailySeriesBody()))
	})
	defer server.Close()

	series, err := client.GetStockSeries(context.Background(), "IBM", "1mo", "1d")
	if err != nil {
		t.Fatalf("GetStockSeries failed: %v", err)
	}

	if capturedFunction != "TIME_SERIES_DAILY" {
		t.Errorf("Expected function TIME_SERIES_DAILY, got %s", capturedFunction)
	}
	if capturedSymbol != "IBM" || capturedKey != "testkey" {
		t.Errorf("Expected symbol=IBM apikey=testkey, got symbol=%s apikey=%s", capturedSymbol, capturedKey)
	}
	if len(series.Bars) != 2 {
		t.Fatalf("Expected 2 bars, got %d", len(series.Bars))
	}
	// Bars are sorted oldest first.
	if series.Bars[0].Close != 101.2 || series.Bars[1].Close != 102.9 {
		t.Errorf("Unexpected bar order: %+v", series.Bars)
	}
	if series.Interval != "1d" {
		t.Errorf("Expected interval 1d, got %s", series.Interval)
	}
}

func TestGetStockSeriesPeriodCutoff(t *testing.T) {
	now := time.Now().UTC()
	old := now.AddDate(0, -3, 0).Format("2006-01-02")
	recent := now.AddDate(0, 0, -1).Format("2006-01-02")
	body := fmt.Sprintf(`{
		"Time Series (Daily)": {
			"%s": {"1. open": "90.0", "2. high": "91.0", "3. low": "89.0", "4. close": "90.5", "5. volume": "1000"},
			"%s": {"1. open": "100.0", "2. high": "101.0", "3. low": "99.0", "4. close": "100.5", "5. volume": "2000"}
		}
	}`, old, recent)

	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})
	defer server.Close()

	series, err := client.GetStockSeries(context.Background(), "IBM", "1mo", "1d")
	if err != nil {
		t.Fatalf("GetStockSeries failed: %v", err)
	}
	if len(series.Bars) != 1 {
		t.Fatalf("Expected 1 bar inside the 1mo window, got %d", len(series.Bars))
	}
	if series.Bars[0].Close != 100.5 {
		t.Errorf("Expected the recent bar, got %+v", series.Bars[0])
	}
}

func TestGetStockSeriesErrorMessage(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Error Message": "Invalid API call."}`))
	})
	defer server.Close()

	_, err := client.GetStockSeries(context.Background(), "NOPE", "1mo", "1d")
	if err == nil {
		t.Fatal("Expected error")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("Expected *APIError, got %T", err)
	}
	if apiErr.Message != "Invalid API call." {
		t.Errorf("Unexpected message: %s", apiErr.Message)
	}
}

func TestGetThrottleNoteBecomesRateLimitError(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Note": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`))
	})
	defer server.Close()

	_, err := client.GetForexRate(context.Background(), "EUR/USD")
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("Expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected status 429 for throttle note, got %d", apiErr.StatusCode)
	}
}

func TestGetForexRate(t *testing.T) {
	var capturedFrom, capturedTo string
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		capturedFrom = r.URL.Query().Get("from_currency")
		capturedTo = r.URL.Query().Get("to_currency")
		w.Write([]byte(exchangeRateBody))
	})
	defer server.Close()

	rate, err := client.GetForexRate(context.Background(), "EUR/USD")
	if err != nil {
		t.Fatalf("GetForexRate failed: %v", err)
	}
	if capturedFrom != "EUR" || capturedTo != "USD" {
		t.Errorf("Expected from=EUR to=USD, got from=%s to=%s", capturedFrom, capturedTo)
	}
	if rate.Rate != 1.0842 {
		t.Errorf("Expected rate 1.0842, got %f", rate.Rate)
	}
	if rate.Bid != 1.0841 || rate.Ask != 1.0843 {
		t.Errorf("Unexpected bid/ask: %f/%f", rate.Bid, rate.Ask)
	}
	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if !rate.Timestamp.Equal(want) {
		t.Errorf("Expected timestamp %v, got %v", want, rate.Timestamp)
	}
}

func TestGetCryptoQuote(t *testing.T) {
	var capturedFrom string
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		capturedFrom = r.URL.Query().Get("from_currency")
		w.Write([]byte(`{
			"Realtime Currency Exchange Rate": {
				"1. From_Currency Code": "BTC",
				"3. To_Currency Code": "USD",
				"5. Exchange Rate": "64250.12000000",
				"6. Last Refreshed": "2025-06-01 12:00:00"
			}
		}`))
	})
	defer server.Close()

	quote, err := client.GetCryptoQuote(context.Background(), "btc")
	if err != nil {
		t.Fatalf("GetCryptoQuote failed: %v", err)
	}
	if capturedFrom != "BTC" {
		t.Errorf("Expected from_currency BTC, got %s", capturedFrom)
	}
	if quote.Price != 64250.12 || quote.Currency != "USD" {
		t.Errorf("Unexpected quote: %+v", quote)
	}
}

func TestGetEconomicSeries(t *testing.T) {
	var capturedFunction string
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		capturedFunction = r.URL.Query().Get("function")
		w.Write([]byte(`{
			"name": "Consumer Price Index for all Urban Consumers",
			"interval": "monthly",
			"unit": "index 1982-1984=100",
			"data": [
				{"date": "2025-05-01", "value": "314.1"},
				{"date": "2025-04-01", "value": "."},
				{"date": "2025-03-01", "value": "313.2"}
			]
		}`))
	})
	defer server.Close()

	series, err := client.GetEconomicSeries(context.Background(), "cpi")
	if err != nil {
		t.Fatalf("GetEconomicSeries failed: %v", err)
	}
	if capturedFunction != "CPI" {
		t.Errorf("Expected function CPI, got %s", capturedFunction)
	}
	if series.Frequency != "monthly" {
		t.Errorf("Expected monthly frequency, got %s", series.Frequency)
	}
	// The "." placeholder value is dropped.
	if len(series.Points) != 2 {
		t.Fatalf("Expected 2 points, got %d", len(series.Points))
	}
}

func TestGetEconomicSeriesUnknownIndicator(t *testing.T) {
	client := NewClient("testkey")

	if _, err := client.GetEconomicSeries(context.Background(), "gdp_per_capita_of_mars"); err == nil {
		t.Fatal("Expected error for unknown indicator")
	}
}
