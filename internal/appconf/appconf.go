// Package appconf loads the site configuration from a YAML file with
// HESAPKIT_* environment overrides.
package appconf

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Environment int

const (
	Development Environment = iota
	Test
	Production
)

var envNames = map[Environment]string{
	Development: "development",
	Test:        "test",
	Production:  "production",
}

func (e Environment) String() string {
	if s, ok := envNames[e]; ok {
		return s
	}
	return "unknown"
}

// EnvFlagToEnvironment maps a flag value to an Environment. Unknown values
// map to Development.
func EnvFlagToEnvironment(env string) Environment {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod":
		return Production
	case "test":
		return Test
	default:
		return Development
	}
}

func (e *Environment) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	switch strings.ToLower(s) {
	case "development", "dev", "test", "production", "prod":
		*e = EnvFlagToEnvironment(s)
		return nil
	}
	return fmt.Errorf("line %d: unknown environment %q", node.Line, s)
}

func (e Environment) MarshalYAML() (any, error) {
	return e.String(), nil
}

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

type Config struct {
	Port      int         `yaml:"port"`
	Env       Environment `yaml:"env"`
	BaseURL   string      `yaml:"base_url"`
	SiteName  string      `yaml:"site_name"`
	LogLevel  string      `yaml:"log_level"`
	RateLimit int         `yaml:"rate_limit"` // API requests per second per client IP
	CacheTTL  string      `yaml:"cache_ttl"`

	// TrustedProxies lists the IPs or CIDRs whose X-Forwarded-For header
	// is believed. Empty means the peer address is always the client.
	TrustedProxies []string `yaml:"trusted_proxies"`

	Twitter    string           `yaml:"twitter"`
	Analytics  AnalyticsConfig  `yaml:"analytics"`
	Redis      RedisConfig      `yaml:"redis"`
	Engagement EngagementConfig `yaml:"engagement"`
	Indexing   IndexingConfig   `yaml:"indexing"`
}

type AnalyticsConfig struct {
	MeasurementID string `yaml:"measurement_id"` // GA4, e.g. G-XXXXXXX
}

// RedisConfig enables the Redis document cache when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type EngagementConfig struct {
	Store string `yaml:"store"` // memory or sqlite
	Path  string `yaml:"path"`
}

// IndexingConfig holds the search-engine notification settings.
//
// Secret, IndexNowKey and GoogleCredentials are secrets; prefer the
// environment variables over the file.
type IndexingConfig struct {
	Secret            string   `yaml:"secret"`
	IndexNowKey       string   `yaml:"indexnow_key"`
	IndexNowEndpoints []string `yaml:"indexnow_endpoints"`
	GoogleCredentials string   `yaml:"google_credentials"` // path to service-account JSON
	Concurrency       int      `yaml:"concurrency"`
}

func Default() *Config {
	return &Config{
		Port:      4000,
		Env:       Development,
		BaseURL:   "http://localhost:4000",
		SiteName:  "HesapKit",
		LogLevel:  "info",
		RateLimit: 10,
		CacheTTL:  "1h",
		Redis:     RedisConfig{Prefix: "hesapkit:"},
		Engagement: EngagementConfig{
			Store: StoreMemory,
			Path:  "data/hesapkit.db",
		},
		Indexing: IndexingConfig{Concurrency: 8},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies
// environment overrides. An empty path or a missing file gives defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"HESAPKIT_BASE_URL":           &c.BaseURL,
		"HESAPKIT_LOG_LEVEL":          &c.LogLevel,
		"HESAPKIT_CACHE_TTL":          &c.CacheTTL,
		"HESAPKIT_GA_ID":              &c.Analytics.MeasurementID,
		"HESAPKIT_REDIS_ADDR":         &c.Redis.Addr,
		"HESAPKIT_REDIS_PASSWORD":     &c.Redis.Password,
		"HESAPKIT_STORE":              &c.Engagement.Store,
		"HESAPKIT_DB_PATH":            &c.Engagement.Path,
		"HESAPKIT_INDEXING_SECRET":    &c.Indexing.Secret,
		"HESAPKIT_INDEXNOW_KEY":       &c.Indexing.IndexNowKey,
		"HESAPKIT_GOOGLE_CREDENTIALS": &c.Indexing.GoogleCredentials,
	}
	for name, dst := range str {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"HESAPKIT_PORT":       &c.Port,
		"HESAPKIT_RATE_LIMIT": &c.RateLimit,
	}
	for name, dst := range ints {
		v, ok := lookup(name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
	}

	if v, ok := lookup("HESAPKIT_TRUSTED_PROXIES"); ok && v != "" {
		c.TrustedProxies = strings.Split(v, ",")
	}
	if v, ok := lookup("HESAPKIT_ENV"); ok && v != "" {
		c.Env = EnvFlagToEnvironment(v)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url %q must be an absolute http(s) URL", c.BaseURL)
	}
	if c.Env == Production && u.Scheme != "https" {
		return fmt.Errorf("base_url %q must use https in production", c.BaseURL)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}
	if _, err := c.ProxyPrefixes(); err != nil {
		return err
	}
	if _, err := time.ParseDuration(c.CacheTTL); err != nil {
		return fmt.Errorf("cache_ttl: %w", err)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	switch c.Engagement.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.Engagement.Path == "" {
			return fmt.Errorf("engagement.path is required for the sqlite store")
		}
	default:
		return fmt.Errorf("unknown engagement store %q (valid: %s, %s)", c.Engagement.Store, StoreMemory, StoreSQLite)
	}
	if c.Indexing.Concurrency < 1 {
		return fmt.Errorf("indexing.concurrency must be at least 1")
	}
	return nil
}

// Level returns the configured log level, defaulting to info.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// ProxyPrefixes parses TrustedProxies. A bare address is a single-host
// prefix.
func (c *Config) ProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("trusted_proxies: %w", err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("trusted_proxies: %w", err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func (c *Config) CacheDuration() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return time.Hour
	}
	return d
}

// Host is the base URL host, used as the IndexNow host.
func (c *Config) Host() string {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return ""
	}
	return u.Host
}

func (c *Config) IsProduction() bool {
	return c.Env == Production
}
