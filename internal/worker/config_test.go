package worker

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
Workers = 8
SignedDivision = true
NetworkKey = "0x01"

[Queue]
Backend = "memory"
Name = "jobs"

[Storage]
Backend = "file"
Path = "/var/lib/mpcint"

[Redis]
Addr = "redis:6379"
DB = 2
`

func TestDecodeConfig(t *testing.T) {
	cfg := DefaultConfig
	require.NoError(t, DecodeConfig(strings.NewReader(sampleConfig), &cfg))

	assert.Equal(t, 8, cfg.Workers)
	assert.True(t, cfg.SignedDivision)
	assert.Equal(t, "memory", cfg.Queue.Backend)
	assert.Equal(t, "jobs", cfg.Queue.Name)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "/var/lib/mpcint", cfg.Storage.Path)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	// Unset keys keep their defaults.
	assert.Equal(t, DefaultConfig.MetricsAddr, cfg.MetricsAddr)
	require.NoError(t, cfg.Validate())
}

func TestDecodeConfigUnknownField(t *testing.T) {
	cfg := DefaultConfig
	err := DecodeConfig(strings.NewReader("Threads = 3\n"), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Threads")
}

func TestEncodeConfig(t *testing.T) {
	cfg := DefaultConfig
	cfg.Workers = 3
	cfg.Storage = StorageConfig{Backend: "memory", Capacity: 1024}

	var buf bytes.Buffer
	require.NoError(t, EncodeConfig(&buf, &cfg))

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))

	var got Config
	require.NoError(t, LoadConfig(path, &got))
	assert.Equal(t, cfg, got)
}

func TestLoadConfigMissing(t *testing.T) {
	var cfg Config
	require.Error(t, LoadConfig(filepath.Join(t.TempDir(), "nope.toml"), &cfg))
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"no workers", func(c *Config) { c.Workers = 0 }, false},
		{"bad queue", func(c *Config) { c.Queue.Backend = "kafka" }, false},
		{"bad storage", func(c *Config) { c.Storage.Backend = "s3" }, false},
		{"file without path", func(c *Config) { c.Storage.Backend = "file" }, false},
		{"file with path", func(c *Config) { c.Storage = StorageConfig{Backend: "file", Path: "/tmp/x"} }, true},
		{"redis storage", func(c *Config) { c.Storage.Backend = "redis" }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
