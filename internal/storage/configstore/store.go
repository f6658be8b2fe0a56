// Package configstore provides file-based JSON persistence for data-source
// settings (data-type mappings and per-provider configs).
package configstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fincept/terminal/internal/common"
	"github.com/fincept/terminal/internal/interfaces"
	"github.com/fincept/terminal/internal/models"
)

// Store reads and writes the data_sources.json file. Writes are atomic:
// the file is replaced via temp-file-and-rename, never written in place.
type Store struct {
	path   string
	logger *common.Logger
}

// NewStore creates a Store for the given file path and ensures the parent
// directory exists.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	logger.Debug().Str("path", path).Msg("Source config store opened")
	return &Store{path: path, logger: logger}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the settings file. A missing file is not an error: it returns
// empty settings so the manager can apply defaults.
func (s *Store) Load() (*models.SourceSettings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.NewSourceSettings(), nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	settings := models.NewSourceSettings()
	if len(data) == 0 {
		return settings, nil
	}
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}

	if settings.DataMappings == nil {
		settings.DataMappings = make(map[models.DataType]string)
	}
	if settings.SourceConfigs == nil {
		settings.SourceConfigs = make(map[string]models.SourceConfig)
	}

	return settings, nil
}

// Save rewrites the settings file wholesale.
func (s *Store) Save(settings *models.SourceSettings) error {
	jsonData, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	jsonData = append(jsonData, '\n')

	dir := filepath.Dir(s.path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(jsonData); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}

	s.logger.Debug().
		Str("path", s.path).
		Int("mappings", len(settings.DataMappings)).
		Int("configs", len(settings.SourceConfigs)).
		Msg("Source settings saved")

	return nil
}

// Compile-time check
var _ interfaces.SourceConfigStore = (*Store)(nil)
