package appconf

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestEnvFlagToEnvironment(t *testing.T) {
	tests := map[string]Environment{
		"production":  Production,
		"prod":        Production,
		" Production": Production,
		"test":        Test,
		"development": Development,
		"":            Development,
		"staging":     Development,
	}
	for in, want := range tests {
		assert.Equal(t, want, EnvFlagToEnvironment(in), in)
	}
	assert.Equal(t, "test", Test.String())
	assert.Equal(t, "unknown", Environment(42).String())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, Development, cfg.Env)
	assert.Equal(t, StoreMemory, cfg.Engagement.Store)
	assert.Equal(t, time.Hour, cfg.CacheDuration())
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	assert.Equal(t, "localhost:4000", cfg.Host())

	cfg, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Port)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hesapkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 8080
env: production
base_url: https://hesapkit.com/
log_level: debug
cache_ttl: 10m
analytics:
  measurement_id: G-TEST123
engagement:
  store: sqlite
  path: /var/lib/hesapkit/db.sqlite
indexing:
  indexnow_key: abc123
  indexnow_endpoints: [https://api.indexnow.org/indexnow]
  concurrency: 2
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "https://hesapkit.com", cfg.BaseURL, "trailing slash is trimmed")
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, 10*time.Minute, cfg.CacheDuration())
	assert.Equal(t, "G-TEST123", cfg.Analytics.MeasurementID)
	assert.Equal(t, StoreSQLite, cfg.Engagement.Store)
	assert.Equal(t, []string{"https://api.indexnow.org/indexnow"}, cfg.Indexing.IndexNowEndpoints)
	assert.Equal(t, 2, cfg.Indexing.Concurrency)
	assert.Equal(t, "hesapkit:", cfg.Redis.Prefix, "unset keys keep defaults")
}

func TestLoadRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("port: [nope"), 0o600))
	_, err := Load(bad)
	assert.ErrorContains(t, err, "parsing config")

	env := filepath.Join(dir, "env.yaml")
	require.NoError(t, os.WriteFile(env, []byte("env: staging\n"), 0o600))
	_, err = Load(env)
	assert.ErrorContains(t, err, `unknown environment "staging"`)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HESAPKIT_PORT", "9000")
	t.Setenv("HESAPKIT_ENV", "test")
	t.Setenv("HESAPKIT_BASE_URL", "https://staging.hesapkit.com")
	t.Setenv("HESAPKIT_INDEXING_SECRET", "s3cret")
	t.Setenv("HESAPKIT_REDIS_ADDR", "localhost:6379")
	t.Setenv("HESAPKIT_TRUSTED_PROXIES", "10.0.0.1,10.0.0.2")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, Test, cfg.Env)
	assert.Equal(t, "https://staging.hesapkit.com", cfg.BaseURL)
	assert.Equal(t, "s3cret", cfg.Indexing.Secret)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.TrustedProxies)

	t.Setenv("HESAPKIT_RATE_LIMIT", "many")
	_, err = Load("")
	assert.ErrorContains(t, err, "HESAPKIT_RATE_LIMIT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"port", func(c *Config) { c.Port = 0 }, "port"},
		{"relative base url", func(c *Config) { c.BaseURL = "/site" }, "base_url"},
		{"http in production", func(c *Config) { c.Env = Production }, "https"},
		{"negative rate limit", func(c *Config) { c.RateLimit = -1 }, "rate_limit"},
		{"cache ttl", func(c *Config) { c.CacheTTL = "soon" }, "cache_ttl"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"store", func(c *Config) { c.Engagement.Store = "postgres" }, "unknown engagement store"},
		{"sqlite path", func(c *Config) { c.Engagement.Store = StoreSQLite; c.Engagement.Path = "" }, "engagement.path"},
		{"concurrency", func(c *Config) { c.Indexing.Concurrency = 0 }, "concurrency"},
		{"trusted proxy", func(c *Config) { c.TrustedProxies = []string{"10.0.0.0/33"} }, "trusted_proxies"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestProxyPrefixes(t *testing.T) {
	cfg := Default()
	cfg.TrustedProxies = []string{"10.1.2.3/8", " 192.0.2.10 ", "", "::ffff:198.51.100.1", "2001:db8::/32"}
	prefixes, err := cfg.ProxyPrefixes()
	require.NoError(t, err)

	got := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		got = append(got, p.String())
	}
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.10/32", "198.51.100.1/32", "2001:db8::/32"}, got)

	cfg.TrustedProxies = []string{"proxy.internal"}
	_, err = cfg.ProxyPrefixes()
	assert.ErrorContains(t, err, "trusted_proxies")
}

func TestEnvironmentMarshalsAsName(t *testing.T) {
	out, err := yaml.Marshal(struct {
		Env Environment `yaml:"env"`
	}{Production})
	require.NoError(t, err)
	assert.Equal(t, "env: production\n", string(out))
}
