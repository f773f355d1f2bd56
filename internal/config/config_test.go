package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voss-io/tiercache/pkg/policy"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 10000, cfg.Cache.MaxItems)
	assert.Equal(t, "lru", cfg.Cache.Policy)
	assert.Equal(t, "tiercache:", cfg.Redis.KeyPrefix)
	assert.True(t, cfg.Offline.Enabled)
	assert.Equal(t, 1000, cfg.Offline.MaxSize)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TIERCACHE_HTTP_PORT", "7777")
	t.Setenv("TIERCACHE_CACHE_MAX_ITEMS", "250")
	t.Setenv("TIERCACHE_REDIS_ADDRESS", "redis:6379")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.HTTP.Port)
	assert.Equal(t, 250, cfg.Cache.MaxItems)
	assert.Equal(t, "redis:6379", cfg.Redis.Address)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
http:
  port: 9090
cache:
  max_items: 500
  policy: lfu
  default_ttl: 5m
redis:
  address: localhost:6379
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 500, cfg.Cache.MaxItems)
	assert.Equal(t, "lfu", cfg.Cache.Policy)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.HTTP.Port = -1 },
			wantErr: true,
		},
		{
			name:    "invalid policy",
			mutate:  func(c *Config) { c.Cache.Policy = "mru" },
			wantErr: true,
		},
		{
			name:    "invalid target utilization",
			mutate:  func(c *Config) { c.Cache.TargetUtilization = 1.5 },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "offline enabled with zero size",
			mutate:  func(c *Config) { c.Offline.MaxSize = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStoreConfig(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Cache.MaxItems = 42
	cfg.Cache.Policy = "fifo"
	cfg.Cache.DefaultTTL = "10m"
	cfg.Cache.SweepInterval = "30s"

	storeCfg := cfg.StoreConfig()
	assert.Equal(t, 42, storeCfg.MaxItems)
	assert.Equal(t, policy.FIFO, storeCfg.Policy)
	assert.Equal(t, 10*time.Minute, storeCfg.DefaultTTL)
	assert.Equal(t, 30*time.Second, storeCfg.SweepInterval)
}

func TestReplayInterval(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.ReplayInterval(time.Minute))

	cfg.Offline.ReplayInterval = "bogus"
	assert.Equal(t, time.Minute, cfg.ReplayInterval(time.Minute))
}
