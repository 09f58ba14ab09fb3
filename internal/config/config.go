package config

import (
	"time"

	"github.com/autolink/autolink/internal/patterns"
)

type Config struct {
	ConfigVersion int               `yaml:"configVersion"`
	Scan          ScanConfig        `yaml:"scan"`
	Colors        map[string]string `yaml:"colors"`
	LinkColor     string            `yaml:"linkColor"`
	SelectedColor string            `yaml:"selectedColor"`
	Transition    time.Duration     `yaml:"transition"`
	Server        ServerConfig      `yaml:"server"`
	RateLimit     RateLimitConfig   `yaml:"rateLimit"`
	Cache         CacheConfig       `yaml:"cache"`
	Logging       LoggingConfig     `yaml:"logging"`
	Metrics       MetricsConfig     `yaml:"metrics"`

	baseDir string `yaml:"-"`
}

type ScanConfig struct {
	Categories    []string `yaml:"categories"`
	CustomPattern string   `yaml:"customPattern"`
	MaxTextBytes  int64    `yaml:"maxTextBytes"`
}

type ServerConfig struct {
	Listen       string        `yaml:"listen"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	TLS          TLSConfig     `yaml:"tls"`
}

type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"certFile"`
	KeyFile  string `yaml:"keyFile"`
}

type RateLimitConfig struct {
	Enabled    bool    `yaml:"enabled"`
	RPS        float64 `yaml:"rps"`
	Burst      int     `yaml:"burst"`
	StatusCode int     `yaml:"statusCode"`
}

type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	RedisURL  string        `yaml:"redisURL"`
	TTL       time.Duration `yaml:"ttl"`
	KeyPrefix string        `yaml:"keyPrefix"`
}

type LoggingConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	ScanLog string `yaml:"scanLog"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

const (
	DefaultMaxTextBytes = 64 << 10
	DefaultListen       = ":8080"
	DefaultCacheTTL     = 10 * time.Minute
	DefaultCachePrefix  = "autolink:"
)

// Default returns a config usable without a file.
func Default() *Config {
	cfg := &Config{ConfigVersion: 1}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if len(c.Scan.Categories) == 0 {
		for _, category := range patterns.BuiltinCategories {
			c.Scan.Categories = append(c.Scan.Categories, string(category))
		}
	}
	if c.Scan.MaxTextBytes == 0 {
		c.Scan.MaxTextBytes = DefaultMaxTextBytes
	}
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = DefaultCachePrefix
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

// ScanCategories parses scan.categories, keeping order and duplicates.
func (c *Config) ScanCategories() ([]patterns.Category, error) {
	return patterns.ParseCategories(c.Scan.Categories)
}

func (c *Config) ResolvePath(path string) string {
	return c.resolvePath(path)
}
