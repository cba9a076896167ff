// Package config defines the immutable application configuration.
// A Config value is decoded once at startup and passed into component
// constructors; components never read ambient process-wide state.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/webhoard/webhoard/internal/logger"
)

const (
	// DefaultPoolSize is the default number of concurrent snapshot workers.
	DefaultPoolSize = 4

	// DefaultMethodTimeout is the default per-extractor time budget.
	DefaultMethodTimeout = 60 * time.Second

	// DefaultFetchTimeout is the default timeout for import crawl fetches.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultUserAgent identifies webhoard to remote servers.
	DefaultUserAgent = "webhoard/1.0 (+https://github.com/webhoard/webhoard)"

	// ArchiveDirName is the subdirectory holding snapshot folders.
	ArchiveDirName = "archive"

	// SourcesDirName is the subdirectory holding write-ahead import copies.
	SourcesDirName = "sources"

	// IndexFileName is the sqlite file backing the index store.
	IndexFileName = "index.sqlite3"
)

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// StorageConfig holds on-disk layout settings.
type StorageConfig struct {
	// DataDir is the collection root containing archive/, sources/ and
	// the index database.
	DataDir string `mapstructure:"data_dir"`
}

// ArchiverConfig holds archiving orchestrator settings.
type ArchiverConfig struct {
	PoolSize        int           `mapstructure:"pool_size"`
	MethodTimeout   time.Duration `mapstructure:"method_timeout"`
	DisabledMethods []string      `mapstructure:"disabled_methods"`
	UserAgent       string        `mapstructure:"user_agent"`
	// WgetBinary and MediaBinary enable the subprocess extractors when
	// set to an executable path. Empty disables the method.
	WgetBinary  string `mapstructure:"wget_binary"`
	MediaBinary string `mapstructure:"media_binary"`
}

// ImporterConfig holds source importer settings.
type ImporterConfig struct {
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	UserAgent    string        `mapstructure:"user_agent"`
}

// Config is the complete application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logger   logger.Config  `mapstructure:"logger"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Archiver ArchiverConfig `mapstructure:"archiver"`
	Importer ImporterConfig `mapstructure:"importer"`
}

// Default returns a production-safe configuration rooted at dataDir.
func Default(dataDir string) Config {
	return Config{
		App: AppConfig{
			Name:        "webhoard",
			Environment: "production",
		},
		Logger: logger.Config{
			Level:    "info",
			Encoding: "console",
		},
		Storage: StorageConfig{DataDir: dataDir},
		Archiver: ArchiverConfig{
			PoolSize:      DefaultPoolSize,
			MethodTimeout: DefaultMethodTimeout,
			UserAgent:     DefaultUserAgent,
		},
		Importer: ImporterConfig{
			FetchTimeout: DefaultFetchTimeout,
			UserAgent:    DefaultUserAgent,
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Storage.DataDir == "" {
		return errors.New("storage.data_dir must be set")
	}
	if c.Archiver.PoolSize < 1 {
		return fmt.Errorf("archiver.pool_size must be positive, got %d", c.Archiver.PoolSize)
	}
	if c.Archiver.MethodTimeout <= 0 {
		return fmt.Errorf("archiver.method_timeout must be positive, got %s", c.Archiver.MethodTimeout)
	}
	if c.Importer.FetchTimeout <= 0 {
		return fmt.Errorf("importer.fetch_timeout must be positive, got %s", c.Importer.FetchTimeout)
	}
	return nil
}

// ArchiveDir returns the directory containing snapshot folders.
func (c *Config) ArchiveDir() string {
	return filepath.Join(c.Storage.DataDir, ArchiveDirName)
}

// SourcesDir returns the directory holding write-ahead import copies.
func (c *Config) SourcesDir() string {
	return filepath.Join(c.Storage.DataDir, SourcesDirName)
}

// IndexPath returns the path of the sqlite index database.
func (c *Config) IndexPath() string {
	return filepath.Join(c.Storage.DataDir, IndexFileName)
}
