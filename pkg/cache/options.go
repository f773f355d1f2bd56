package cache

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/voss-io/tiercache/pkg/policy"
)

// Config holds store configuration.
type Config struct {
	// MaxItems caps the number of entries in the memory tier. 0 means
	// unlimited.
	MaxItems int

	// MaxBytes caps the total serialized size of the memory tier. 0 means
	// unlimited.
	MaxBytes int64

	// DefaultTTL applies when neither the set options nor a strategy
	// specify one. 0 means entries without an explicit TTL never expire.
	DefaultTTL time.Duration

	// Policy selects the eviction policy (LRU by default).
	Policy policy.Name

	// SweepInterval is how often the janitor removes expired entries and
	// re-enforces limits. 0 disables the background sweep.
	SweepInterval time.Duration

	// SweepBatchSize bounds how many entries a sweep removes per lock
	// acquisition, so a large sweep never holds the write lock for its
	// whole duration.
	SweepBatchSize int

	// TargetUtilization is the fraction of MaxItems/MaxBytes the janitor
	// evicts down to when limits are exceeded after a sweep.
	TargetUtilization float64

	// TierTimeout bounds write-through calls to the secondary tiers.
	TierTimeout time.Duration

	// Logger receives structured engine logs. Defaults to a stderr logger.
	Logger zerolog.Logger
}

// DefaultConfig returns the default store configuration: LRU eviction,
// no size limits, 60s sweep, 80% target utilization.
func DefaultConfig() Config {
	return Config{
		Policy:            policy.LRU,
		SweepInterval:     60 * time.Second,
		SweepBatchSize:    64,
		TargetUtilization: 0.8,
		TierTimeout:       5 * time.Second,
		Logger:            zerolog.New(os.Stderr).With().Timestamp().Str("component", "cache").Logger(),
	}
}

func (c *Config) applyDefaults() {
	if c.Policy == "" {
		c.Policy = policy.LRU
	}
	if c.SweepBatchSize <= 0 {
		c.SweepBatchSize = 64
	}
	if c.TargetUtilization <= 0 || c.TargetUtilization > 1 {
		c.TargetUtilization = 0.8
	}
	if c.TierTimeout <= 0 {
		c.TierTimeout = 5 * time.Second
	}
}

// SetOptions collects per-write options. TTL precedence is explicit
// option > strategy > Config.DefaultTTL.
type SetOptions struct {
	// TTL overrides the strategy and engine default when positive.
	TTL time.Duration

	// Tags are added to the entry, in union with strategy tags.
	Tags []string

	// Compress forces gzip compression of the serialized value. The
	// strategy's Compress flag applies when nil.
	Compress *bool

	// Metadata is attached to the entry verbatim.
	Metadata map[string]string
}

// SetOption mutates SetOptions.
type SetOption func(*SetOptions)

// WithTTL sets an explicit TTL for this write.
func WithTTL(ttl time.Duration) SetOption {
	return func(o *SetOptions) { o.TTL = ttl }
}

// WithTags adds tags to this write.
func WithTags(tags ...string) SetOption {
	return func(o *SetOptions) { o.Tags = append(o.Tags, tags...) }
}

// WithCompression forces compression on or off for this write.
func WithCompression(enabled bool) SetOption {
	return func(o *SetOptions) { o.Compress = &enabled }
}

// WithMetadata attaches free-form metadata to the entry.
func WithMetadata(md map[string]string) SetOption {
	return func(o *SetOptions) { o.Metadata = md }
}
