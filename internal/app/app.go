// Package app wires configuration, storage, the provider registry, and the
// data source manager into a single composition root shared by every entry
// point. Nothing in here is a global: callers hold the App and pass its
// services down explicitly.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fincept/terminal/internal/common"
	"github.com/fincept/terminal/internal/interfaces"
	"github.com/fincept/terminal/internal/services/datasource"
	"github.com/fincept/terminal/internal/storage/configstore"
)

// App holds all initialized services and clients.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	SourceStore interfaces.SourceConfigStore
	Registry    *datasource.Registry
	DataSources interfaces.DataSourceManager
	StartupTime time.Time

	scheduler *scheduler
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes configuration, logging, persistence, and the data
// source manager. configPath may be empty, in which case FINCEPT_CONFIG,
// the binary directory, and the development config dir are tried in order.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	if configPath == "" {
		configPath = os.Getenv("FINCEPT_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "fincept.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/fincept.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	sourceStore, err := configstore.NewStore(logger, config.Sources.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize source config store: %w", err)
	}

	registry := datasource.NewRegistry(config, logger)
	manager := datasource.NewManager(registry, sourceStore, logger)

	a := &App{
		Config:      config,
		Logger:      logger,
		SourceStore: sourceStore,
		Registry:    registry,
		DataSources: manager,
		StartupTime: startupStart,
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// Close releases all resources held by the App.
func (a *App) Close() {
	a.StopScheduler()
}
