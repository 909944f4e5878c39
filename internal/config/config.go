package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"github.com/mycelian/rinku/internal/localstate"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Cache and blob drivers.
const (
	CacheSQLite = "sqlite"
	CacheMemory = "memory"
	BlobHTTP    = "http"
	BlobGCS     = "gcs"
)

// Config holds the configuration of the sync engine.
// Environment variables are parsed from the RINKU_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// Backend
	BackendURL  string        `envconfig:"BACKEND_URL" default:"http://localhost:11545"`
	APIKey      string        `envconfig:"API_KEY" default:""`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`

	// Local storage
	DataDir         string `envconfig:"DATA_DIR" default:""`
	CacheDriver     string `envconfig:"CACHE_DRIVER" default:"sqlite"`
	PartitionPrefix string `envconfig:"PARTITION_PREFIX" default:"lovedones_"`

	// Remote photo bytes
	BlobDriver  string `envconfig:"BLOB_DRIVER" default:"http"`
	GCSBucket   string `envconfig:"GCS_BUCKET" default:""`
	GCSEndpoint string `envconfig:"GCS_ENDPOINT" default:""`

	// Background pushes
	PushShards      int           `envconfig:"PUSH_SHARDS" default:"4"`
	PushQueueSize   int           `envconfig:"PUSH_QUEUE_SIZE" default:"256"`
	PushMaxAttempts int           `envconfig:"PUSH_MAX_ATTEMPTS" default:"1"`
	PushBaseBackoff time.Duration `envconfig:"PUSH_BASE_BACKOFF" default:"200ms"`

	ReconcileConcurrency int `envconfig:"RECONCILE_CONCURRENCY" default:"4"`

	// Zero disables the poller / checker.
	GroupPollInterval time.Duration `envconfig:"GROUP_POLL_INTERVAL" default:"0s"`
	HealthInterval    time.Duration `envconfig:"HEALTH_INTERVAL" default:"0s"`
}

// ResolveDefaults validates drivers and derives DataDir when empty.
func (c *Config) ResolveDefaults() error {
	if c.Environment == "" {
		c.Environment = EnvDevelopment
	}
	switch c.Environment {
	case EnvDevelopment, EnvTesting, EnvProduction:
	default:
		return fmt.Errorf("unsupported ENVIRONMENT: %s", c.Environment)
	}

	if c.CacheDriver == "" {
		c.CacheDriver = CacheSQLite
	}
	allowedCache := map[string]bool{CacheSQLite: true, CacheMemory: true}
	if !allowedCache[c.CacheDriver] {
		return fmt.Errorf("unsupported CACHE_DRIVER: %s", c.CacheDriver)
	}

	if c.BlobDriver == "" {
		c.BlobDriver = BlobHTTP
	}
	switch c.BlobDriver {
	case BlobHTTP:
	case BlobGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET is required when BLOB_DRIVER=gcs")
		}
	default:
		return fmt.Errorf("unsupported BLOB_DRIVER: %s", c.BlobDriver)
	}

	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	if c.APIKey == "" && c.IsProduction() {
		return fmt.Errorf("API_KEY is required in production")
	}
	if c.PushShards < 1 || c.PushQueueSize < 1 || c.PushMaxAttempts < 1 {
		return fmt.Errorf("push shards, queue size and max attempts must be positive")
	}
	if c.ReconcileConcurrency < 1 {
		return fmt.Errorf("RECONCILE_CONCURRENCY must be positive")
	}
	if c.GroupPollInterval < 0 || c.HealthInterval < 0 {
		return fmt.Errorf("poll intervals must not be negative")
	}

	if c.DataDir == "" {
		dir, err := localstate.DataDir()
		if err != nil {
			return fmt.Errorf("resolve data dir: %w", err)
		}
		c.DataDir = dir
	}
	return nil
}

// New creates a new Config by parsing environment variables
// prefixed with RINKU_, e.g. RINKU_BACKEND_URL, RINKU_CACHE_DRIVER.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("RINKU", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("backend_url", cfg.BackendURL).
		Bool("api_key_present", cfg.APIKey != "").
		Str("data_dir", cfg.DataDir).
		Str("cache_driver", cfg.CacheDriver).
		Str("blob_driver", cfg.BlobDriver).
		Int("push_shards", cfg.PushShards).
		Int("push_max_attempts", cfg.PushMaxAttempts).
		Int("reconcile_concurrency", cfg.ReconcileConcurrency).
		Dur("group_poll_interval", cfg.GroupPollInterval).
		Dur("health_interval", cfg.HealthInterval).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates an in-memory config pointing at backendURL.
func NewForTesting(backendURL, dataDir string) *Config {
	return &Config{
		Environment:          EnvTesting,
		BackendURL:           backendURL,
		HTTPTimeout:          5 * time.Second,
		DataDir:              dataDir,
		CacheDriver:          CacheMemory,
		PartitionPrefix:      "lovedones_",
		BlobDriver:           BlobHTTP,
		PushShards:           2,
		PushQueueSize:        64,
		PushMaxAttempts:      1,
		PushBaseBackoff:      10 * time.Millisecond,
		ReconcileConcurrency: 2,
	}
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}
