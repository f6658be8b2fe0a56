package datasource

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fincept/terminal/internal/models"
)

// Logical columns recognized per data type. The first entry is the
// timestamp column; the rest are numeric value columns.
var csvSchemas = map[models.DataType][]string{
	models.DataTypeStocks:   {"timestamp", "open", "high", "low", "close", "volume"},
	models.DataTypeForex:    {"timestamp", "rate", "bid", "ask"},
	models.DataTypeCrypto:   {"timestamp", "price", "volume"},
	models.DataTypeEconomic: {"timestamp", "value"},
}

// ImportCSV reads a delimited file with a header row, remapping CSV headers
// to the fixed schema for the data type via columnMapping (logical field ->
// header name). Logical fields whose mapped header is absent are skipped
// with a warning; the import only fails when no value column resolves at
// all, or the file itself is unreadable.
func (m *Manager) ImportCSV(path string, dataType models.DataType, columnMapping map[string]string) (*models.CSVImport, error) {
	schema, ok := csvSchemas[dataType]
	if !ok {
		return nil, fmt.Errorf("data type %s cannot be imported from CSV", dataType)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	headerIndex := make(map[string]int, len(header))
	for i, name := range header {
		headerIndex[strings.ToLower(strings.TrimSpace(name))] = i
	}

	imp := &models.CSVImport{
		DataType: dataType,
		Values:   make(map[string][]float64),
	}

	// Resolve each logical field to a column index. An unmapped field uses
	// its own name as the header.
	columns := make(map[string]int)
	for _, field := range schema {
		name := field
		if mapped, ok := columnMapping[field]; ok && mapped != "" {
			name = mapped
		}
		idx, ok := headerIndex[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			imp.Skipped = append(imp.Skipped, field)
			m.logger.Warn().
				Str("field", field).
				Str("column", name).
				Str("path", path).
				Msg("CSV column not found, field skipped")
			continue
		}
		columns[field] = idx
	}

	timestampIdx, hasTimestamp := columns["timestamp"]
	valueColumns := len(columns)
	if hasTimestamp {
		valueColumns--
	}
	if valueColumns == 0 {
		return nil, fmt.Errorf("no usable value columns in %s for %s data", path, dataType)
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		values := make(map[string]float64, valueColumns)
		rowOK := true
		for field, idx := range columns {
			if field == "timestamp" || idx >= len(record) {
				continue
			}
			v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(record[idx]), ",", ""), 64)
			if err != nil {
				rowOK = false
				break
			}
			values[field] = v
		}
		if !rowOK {
			m.logger.Debug().Int("row", imp.Rows+1).Msg("Skipping CSV row with unparseable value")
			continue
		}

		if hasTimestamp && timestampIdx < len(record) {
			imp.Timestamps = append(imp.Timestamps, strings.TrimSpace(record[timestampIdx]))
		}
		for field, v := range values {
			imp.Values[field] = append(imp.Values[field], v)
		}
		imp.Rows++
	}

	m.logger.Info().
		Str("path", path).
		Str("data_type", string(dataType)).
		Int("rows", imp.Rows).
		Int("skipped_fields", len(imp.Skipped)).
		Msg("CSV import complete")

	return imp, nil
}
