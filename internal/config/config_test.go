package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigLoad_Defaults(t *testing.T) {
	t.Setenv("RINKU_HOME", t.TempDir())

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, "http://localhost:11545", cfg.BackendURL)
	assert.Equal(t, CacheSQLite, cfg.CacheDriver)
	assert.Equal(t, BlobHTTP, cfg.BlobDriver)
	assert.Equal(t, "lovedones_", cfg.PartitionPrefix)
	assert.Equal(t, 1, cfg.PushMaxAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.PushBaseBackoff)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Zero(t, cfg.GroupPollInterval)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestConfigLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RINKU_BACKEND_URL", "http://backend:9000")
	t.Setenv("RINKU_CACHE_DRIVER", "memory")
	t.Setenv("RINKU_DATA_DIR", dir)
	t.Setenv("RINKU_PUSH_MAX_ATTEMPTS", "3")
	t.Setenv("RINKU_GROUP_POLL_INTERVAL", "30s")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "http://backend:9000", cfg.BackendURL)
	assert.Equal(t, CacheMemory, cfg.CacheDriver)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, 3, cfg.PushMaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.GroupPollInterval)
}

func TestResolveDefaults_Rejects(t *testing.T) {
	cases := map[string]func(*Config){
		"cache driver":  func(c *Config) { c.CacheDriver = "redis" },
		"blob driver":   func(c *Config) { c.BlobDriver = "s3" },
		"gcs bucket":    func(c *Config) { c.BlobDriver = BlobGCS },
		"environment":   func(c *Config) { c.Environment = "staging" },
		"prod api key":  func(c *Config) { c.Environment = EnvProduction },
		"push shards":   func(c *Config) { c.PushShards = 0 },
		"concurrency":   func(c *Config) { c.ReconcileConcurrency = 0 },
		"negative poll": func(c *Config) { c.HealthInterval = -time.Second },
		"empty backend": func(c *Config) { c.BackendURL = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := NewForTesting("http://x", t.TempDir())
			mutate(cfg)
			assert.Error(t, cfg.ResolveDefaults())
		})
	}
}

func TestResolveDefaults_GCSWithBucketAndDataDir(t *testing.T) {
	home := filepath.Join(t.TempDir(), "home")
	t.Setenv("RINKU_HOME", home)

	cfg := NewForTesting("http://x", "")
	cfg.BlobDriver = BlobGCS
	cfg.GCSBucket = "photos"
	require.NoError(t, cfg.ResolveDefaults())
	assert.Equal(t, home, cfg.DataDir)
	assert.DirExists(t, home)
}
