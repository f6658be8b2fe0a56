package dbnomics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fincept/terminal/internal/interfaces"
	"github.com/fincept/terminal/internal/models"
)

const seriesBody = `{
	"series": {
		"docs": [{
			"series_code": "NAEXKP01.USA.GP.Q",
			"series_name": "GDP growth, United States, quarterly",
			"@frequency": "quarterly",
			"period": ["2024-Q4", "2025-Q1", "2025-Q2"],
			"value": [0.6, 0.4, 0.7]
		}]
	}
}`

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient(WithBaseURL(server.URL))
	return client, server
}

func TestGetSeries(t *testing.T) {
	var capturedPath, capturedObs string
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedObs = r.URL.Query().Get("observations")
		w.Write([]byte(seriesBody))
	})
	defer server.Close()

	series, err := client.GetSeries(context.Background(), "OECD/KEI/NAEXKP01.USA.GP.Q")
	if err != nil {
		t.Fatalf("GetSeries failed: %v", err)
	}

	if capturedPath != "/series/OECD/KEI/NAEXKP01.USA.GP.Q" {
		t.Errorf("Unexpected path: %s", capturedPath)
	}
	if capturedObs != "1" {
		t.Errorf("Expected observations=1, got %s", capturedObs)
	}
	if series.Frequency != "quarterly" {
		t.Errorf("Expected quarterly frequency, got %s", series.Frequency)
	}
	if len(series.Points) != 3 {
		t.Fatalf("Expected 3 points, got %d", len(series.Points))
	}
	if series.Points[2].Date != "2025-Q2" || series.Points[2].Value != 0.7 {
		t.Errorf("Unexpected last point: %+v", series.Points[2])
	}
}

func TestGetSeriesInvalidID(t *testing.T) {
	client := NewClient()

	for _, id := range []string{"", "OECD", "OECD/KEI", "OECD/KEI/X/Y"} {
		if _, err := client.GetSeries(context.Background(), id); err == nil {
			t.Errorf("Expected error for series id %q", id)
		}
	}
}

func TestGetSeriesEmptyDocs(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"series": {"docs": []}}`))
	})
	defer server.Close()

	if _, err := client.GetSeries(context.Background(), "OECD/KEI/MISSING"); err == nil {
		t.Fatal("Expected error for empty docs")
	}
}

func TestGetSeriesHTTPError(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("series not found"))
	})
	defer server.Close()

	_, err := client.GetSeries(context.Background(), "OECD/KEI/MISSING")
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("Expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", apiErr.StatusCode)
	}
}

func TestFetchRejectsOtherDataTypes(t *testing.T) {
	client := NewClient()

	if _, err := client.Fetch(context.Background(), interfaces.FetchRequest{
		DataType: models.DataTypeStocks,
		Symbol:   "AAPL",
	}); err == nil {
		t.Fatal("Expected error for stocks request")
	}
}
