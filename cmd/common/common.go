// Package common provides the shared wiring used by every subcommand:
// configuration decoding, logger construction and store setup.
package common

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/webhoard/webhoard/internal/archiver"
	"github.com/webhoard/webhoard/internal/config"
	"github.com/webhoard/webhoard/internal/extractor"
	"github.com/webhoard/webhoard/internal/folders"
	"github.com/webhoard/webhoard/internal/importer"
	"github.com/webhoard/webhoard/internal/index"
	"github.com/webhoard/webhoard/internal/logger"
	"github.com/webhoard/webhoard/internal/repair"
)

// LoadConfig decodes the viper state into an immutable Config value.
func LoadConfig() (config.Config, error) {
	cfg := config.Default(viper.GetString("storage.data_dir"))
	if err := viper.Unmarshal(&cfg); err != nil {
		return config.Config{}, fmt.Errorf("decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// App bundles the wired components a subcommand works with.
type App struct {
	Cfg     config.Config
	Log     logger.Interface
	Index   *index.Store
	Folders *folders.Store
}

// OpenApp loads config, builds the logger and opens the stores.
func OpenApp() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	store, err := index.Open(cfg.IndexPath())
	if err != nil {
		return nil, err
	}

	return &App{
		Cfg:     cfg,
		Log:     log,
		Index:   store,
		Folders: folders.NewStore(cfg.ArchiveDir()),
	}, nil
}

// Close releases the app's resources.
func (a *App) Close() {
	if a.Index != nil {
		_ = a.Index.Close()
	}
}

// NewArchiver builds the archiving orchestrator with the default
// extractor registry.
func (a *App) NewArchiver() *archiver.Archiver {
	registry := extractor.Default(a.Cfg.Archiver)
	return archiver.New(a.Cfg.Archiver, registry, a.Index, a.Folders, a.Log)
}

// NewImporter builds the source importer.
func (a *App) NewImporter() *importer.Importer {
	return importer.New(a.Cfg.Importer, a.Cfg.SourcesDir(), a.Index, a.Log)
}

// NewRepairEngine builds the repair engine.
func (a *App) NewRepairEngine() *repair.Engine {
	return repair.New(a.Folders, a.Index, a.Log)
}
