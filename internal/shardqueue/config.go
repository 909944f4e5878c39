package shardqueue

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// Config groups all tunables. Values may be taken from environment
// variables with the prefix "RINKU_PUSH_", e.g. RINKU_PUSH_SHARDS=8.
//
// MaxAttempts defaults to 1: remote pushes are best-effort and a failed push
// is picked up again by the next full reconciliation pass.
type Config struct {
	Shards         int           `envconfig:"SHARDS"          default:"4"`
	QueueSize      int           `envconfig:"QUEUE_SIZE"      default:"256"`
	EnqueueTimeout time.Duration `envconfig:"ENQUEUE_TIMEOUT" default:"100ms"`

	MaxAttempts int           `envconfig:"MAX_ATTEMPTS" default:"1"`
	BaseBackoff time.Duration `envconfig:"BASE_BACKOFF" default:"200ms"`
	MaxInterval time.Duration `envconfig:"MAX_INTERVAL" default:"20s"`

	// ErrorHandler is called synchronously after a Job gives up with a
	// non-nil error. Leave nil if you do not care.
	ErrorHandler func(error) `envconfig:"-"`

	Logger zerolog.Logger `envconfig:"-"`
}

// LoadConfig populates Config from environment variables (prefix RINKU_PUSH).
func LoadConfig() (Config, error) {
	var c Config
	c.Logger = zerolog.Nop()
	return c, envconfig.Process("RINKU_PUSH", &c)
}
