package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webhoard/webhoard/internal/config"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := config.Default("/data/hoard")
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "webhoard", cfg.App.Name)
	assert.Equal(t, config.DefaultPoolSize, cfg.Archiver.PoolSize)
	assert.Equal(t, config.DefaultMethodTimeout, cfg.Archiver.MethodTimeout)
	assert.Equal(t, config.DefaultFetchTimeout, cfg.Importer.FetchTimeout)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{"valid defaults", func(*config.Config) {}, false},
		{"missing data dir", func(c *config.Config) { c.Storage.DataDir = "" }, true},
		{"zero pool size", func(c *config.Config) { c.Archiver.PoolSize = 0 }, true},
		{"negative pool size", func(c *config.Config) { c.Archiver.PoolSize = -1 }, true},
		{"zero method timeout", func(c *config.Config) { c.Archiver.MethodTimeout = 0 }, true},
		{"zero fetch timeout", func(c *config.Config) { c.Importer.FetchTimeout = 0 }, true},
		{"custom timeout", func(c *config.Config) { c.Archiver.MethodTimeout = time.Second }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default("/data/hoard")
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPaths(t *testing.T) {
	t.Parallel()

	cfg := config.Default("/data/hoard")

	assert.Equal(t, filepath.Join("/data/hoard", "archive"), cfg.ArchiveDir())
	assert.Equal(t, filepath.Join("/data/hoard", "sources"), cfg.SourcesDir())
	assert.Equal(t, filepath.Join("/data/hoard", "index.sqlite3"), cfg.IndexPath())
}
