package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the full startup configuration of the proxy. All fields are
// optional in the YAML file; absent fields fall back to the defaults below,
// which reproduce the historical constants (listen 8888, backend
// localhost:7777, 60s staleness bound).
type Config struct {
	ListenPort  int      `yaml:"listenPort"`
	MetricsPort int      `yaml:"metricsPort"`
	Backend     Backend  `yaml:"backend"`
	Cache       Cache    `yaml:"cache"`
	MaxLineSize string   `yaml:"maxLineSize"`
	ClientRead  Duration `yaml:"clientReadTimeout"`
}

type Backend struct {
	Host    string   `yaml:"host"`
	Port    int      `yaml:"port"`
	Timeout Duration `yaml:"timeout"`
}

type Cache struct {
	MaxAge Duration `yaml:"maxAge"`
}

// Duration wraps time.Duration so YAML values like "60s" or "1m" parse
// directly.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(value.Value))
	if err != nil {
		return fmt.Errorf("invalid duration '%s': %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

const (
	defaultListenPort  = 8888
	defaultMetricsPort = 9090
	defaultBackendHost = "localhost"
	defaultBackendPort = 7777
	defaultTimeout     = 5 * time.Second
	defaultClientRead  = 10 * time.Second
	defaultMaxAge      = 60 * time.Second
	defaultMaxLineSize = "64KB"
)

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config '%s': %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config '%s': %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config '%s': %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ListenPort == 0 {
		c.ListenPort = defaultListenPort
	}
	if c.MetricsPort == 0 {
		c.MetricsPort = defaultMetricsPort
	}
	if c.Backend.Host == "" {
		c.Backend.Host = defaultBackendHost
	}
	if c.Backend.Port == 0 {
		c.Backend.Port = defaultBackendPort
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = Duration(defaultTimeout)
	}
	if c.ClientRead == 0 {
		c.ClientRead = Duration(defaultClientRead)
	}
	if c.Cache.MaxAge == 0 {
		c.Cache.MaxAge = Duration(defaultMaxAge)
	}
	if c.MaxLineSize == "" {
		c.MaxLineSize = defaultMaxLineSize
	}
}

func (c *Config) Validate() error {
	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return fmt.Errorf("listenPort must be 1..65535, got %d", c.ListenPort)
	}
	if c.MetricsPort <= 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("metricsPort must be 1..65535, got %d", c.MetricsPort)
	}
	if c.MetricsPort == c.ListenPort {
		return fmt.Errorf("metricsPort and listenPort must differ, both are %d", c.ListenPort)
	}
	if c.Backend.Host == "" {
		return fmt.Errorf("backend.host is required")
	}
	if c.Backend.Port <= 0 || c.Backend.Port > 65535 {
		return fmt.Errorf("backend.port must be 1..65535, got %d", c.Backend.Port)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be > 0")
	}
	if c.ClientRead <= 0 {
		return fmt.Errorf("clientReadTimeout must be > 0")
	}
	if c.Cache.MaxAge <= 0 {
		return fmt.Errorf("cache.maxAge must be > 0")
	}
	if bytes, err := c.MaxLineBytes(); err != nil || bytes == 0 {
		return fmt.Errorf("invalid maxLineSize '%s'", c.MaxLineSize)
	}
	return nil
}

// MaxLineBytes converts the human-readable line limit ("64KB", "1MB")
// into a byte count.
func (c *Config) MaxLineBytes() (int, error) {
	bytes, err := humanize.ParseBytes(strings.TrimSpace(c.MaxLineSize))
	if err != nil {
		return 0, fmt.Errorf("maxLineSize: %w", err)
	}
	return int(bytes), nil
}

// Addr renders the backend as a dialable host:port string.
func (b Backend) Addr() string {
	return fmt.Sprintf("%s:%d", b.Host, b.Port)
}
