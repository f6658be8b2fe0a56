package finceptapi

import (
	"context"
	"testing"

	"github.com/fincept/terminal/internal/interfaces"
	"github.com/fincept/terminal/internal/models"
)

func TestFetchDelegatesToGenerator(t *testing.T) {
	client := NewClient("unused-key")

	payload, err := client.Fetch(context.Background(), interfaces.FetchRequest{
		DataType: models.DataTypeStocks,
		Symbol:   "AAPL",
		Period:   "5d",
		Interval: "1d",
	})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if payload.Stocks == nil || len(payload.Stocks.Bars) == 0 {
		t.Fatal("Expected generated stock bars")
	}
}

func TestFetchRejectsUnsupportedTypes(t *testing.T) {
	client := NewClient("")

	for _, dt := range []models.DataType{models.DataTypeForex, models.DataTypeCrypto, models.DataTypeEconomic} {
		if _, err := client.Fetch(context.Background(), interfaces.FetchRequest{DataType: dt}); err == nil {
			t.Errorf("Expected error for %s", dt)
		}
	}
}

func TestProbe(t *testing.T) {
	if err := NewClient("key").Probe(context.Background()); err != nil {
		t.Errorf("Probe failed: %v", err)
	}
}
