// Package interfaces defines service contracts for the Fincept terminal server.
package interfaces

import (
	"context"

	"github.com/fincept/terminal/internal/models"
)

// DataSourceManager is the single point of access for all data types. It
// decouples consumers from concrete provider APIs and adds opportunistic
// caching and per-provider fallback.
//
// Getters never return an error: provider failures are caught, logged, and
// converted into a failure Result. Only configuration mutations
// (SetDataSource) raise validation errors to the caller.
type DataSourceManager interface {
	// Data-type getters
	GetStockData(ctx context.Context, symbol, period, interval string) *models.Result
	GetForexData(ctx context.Context, pair string) *models.Result
	GetCryptoData(ctx context.Context, symbol string) *models.Result
	GetNews(ctx context.Context, category string, limit int) *models.Result
	GetEconomicData(ctx context.Context, indicator string) *models.Result

	// Configuration
	DataSource(dataType models.DataType) string
	SetDataSource(dataType models.DataType, provider string, config *models.SourceConfig) error
	Providers() []models.ProviderInfo
	Mappings() map[models.DataType]string

	// Diagnostics
	TestDataSource(ctx context.Context, provider string) *models.SourceTest
	ValidateConfiguration() *models.ValidationReport
	HealthCheck(ctx context.Context) *models.HealthReport

	// Cache utilities
	ClearCache(dataType models.DataType) int
	CacheStats() *models.CacheStats

	// ImportCSV reads a delimited file with a header row and remaps named
	// columns to the fixed schema for dataType.
	ImportCSV(path string, dataType models.DataType, columnMapping map[string]string) (*models.CSVImport, error)
}
