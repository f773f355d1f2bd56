// Package config loads proxy configuration from file and environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/voss-io/tiercache/pkg/cache"
	"github.com/voss-io/tiercache/pkg/policy"
)

// Config holds all configuration for the tiercache proxy.
type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Persist PersistConfig `mapstructure:"persist"`
	Offline OfflineConfig `mapstructure:"offline"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

// CacheConfig holds memory tier configuration.
type CacheConfig struct {
	MaxItems          int     `mapstructure:"max_items"`
	MaxBytes          int64   `mapstructure:"max_bytes"`
	DefaultTTL        string  `mapstructure:"default_ttl"`
	Policy            string  `mapstructure:"policy"`
	SweepInterval     string  `mapstructure:"sweep_interval"`
	TargetUtilization float64 `mapstructure:"target_utilization"`
}

// RedisConfig holds the distributed tier connection. An empty address
// disables the tier.
type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// PersistConfig holds the persistent tier. An empty path disables the
// tier.
type PersistConfig struct {
	Path      string `mapstructure:"path"`
	Rehydrate bool   `mapstructure:"rehydrate"`
}

// OfflineConfig holds the offline queue.
type OfflineConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	MaxSize        int    `mapstructure:"max_size"`
	ReplayInterval string `mapstructure:"replay_interval"`
	MaxRetries     int    `mapstructure:"max_retries"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TIERCACHE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not fatal if env vars are set
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", 8080)

	v.SetDefault("cache.max_items", 10000)
	v.SetDefault("cache.max_bytes", 0)
	v.SetDefault("cache.default_ttl", "0s")
	v.SetDefault("cache.policy", "lru")
	v.SetDefault("cache.sweep_interval", "60s")
	v.SetDefault("cache.target_utilization", 0.8)

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "tiercache:")

	v.SetDefault("persist.path", "")
	v.SetDefault("persist.rehydrate", true)

	v.SetDefault("offline.enabled", true)
	v.SetDefault("offline.max_size", 1000)
	v.SetDefault("offline.replay_interval", "15s")
	v.SetDefault("offline.max_retries", 3)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port: %d", c.HTTP.Port)
	}

	if c.Cache.MaxItems < 0 {
		return fmt.Errorf("cache max_items must be >= 0")
	}
	if c.Cache.MaxBytes < 0 {
		return fmt.Errorf("cache max_bytes must be >= 0")
	}
	if c.Cache.TargetUtilization <= 0 || c.Cache.TargetUtilization > 1 {
		return fmt.Errorf("cache target_utilization must be in (0, 1]")
	}

	validPolicies := map[string]bool{
		string(policy.LRU):    true,
		string(policy.LFU):    true,
		string(policy.FIFO):   true,
		string(policy.Random): true,
	}
	if !validPolicies[c.Cache.Policy] {
		return fmt.Errorf("invalid eviction policy: %s", c.Cache.Policy)
	}

	if c.Offline.Enabled && c.Offline.MaxSize <= 0 {
		return fmt.Errorf("offline max_size must be > 0 when enabled")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// StoreConfig converts the loaded cache section into a store Config.
// Duration fields were validated as parseable by viper's unmarshalling,
// so parse errors here fall back to the store defaults.
func (c *Config) StoreConfig() cache.Config {
	storeCfg := cache.DefaultConfig()
	storeCfg.MaxItems = c.Cache.MaxItems
	storeCfg.MaxBytes = c.Cache.MaxBytes
	storeCfg.Policy = policy.Name(c.Cache.Policy)
	storeCfg.TargetUtilization = c.Cache.TargetUtilization
	if d, err := time.ParseDuration(c.Cache.DefaultTTL); err == nil {
		storeCfg.DefaultTTL = d
	}
	if d, err := time.ParseDuration(c.Cache.SweepInterval); err == nil {
		storeCfg.SweepInterval = d
	}
	return storeCfg
}

// ReplayInterval returns the parsed offline replay interval, or def on a
// parse failure.
func (c *Config) ReplayInterval(def time.Duration) time.Duration {
	if d, err := time.ParseDuration(c.Offline.ReplayInterval); err == nil && d > 0 {
		return d
	}
	return def
}
