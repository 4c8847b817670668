package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Success(t *testing.T) {
	yaml := `
listenPort: 9999
metricsPort: 9100
backend:
  host: kv.internal
  port: 7001
  timeout: 2s
cache:
  maxAge: 30s
maxLineSize: 1MB
clientReadTimeout: 3s
`
	cfg, err := Load(writeConfig(t, yaml))
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.ListenPort)
	assert.Equal(t, 9100, cfg.MetricsPort)
	assert.Equal(t, "kv.internal:7001", cfg.Backend.Addr())
	assert.Equal(t, 2*time.Second, cfg.Backend.Timeout.Std())
	assert.Equal(t, 30*time.Second, cfg.Cache.MaxAge.Std())
	assert.Equal(t, 3*time.Second, cfg.ClientRead.Std())

	bytes, err := cfg.MaxLineBytes()
	require.NoError(t, err)
	assert.Equal(t, 1000000, bytes)
}

func TestLoad_DefaultsForAbsentFields(t *testing.T) {
	cfg, err := Load(writeConfig(t, "listenPort: 8001\n"))
	require.NoError(t, err)

	assert.Equal(t, 8001, cfg.ListenPort)
	assert.Equal(t, "localhost:7777", cfg.Backend.Addr())
	assert.Equal(t, 60*time.Second, cfg.Cache.MaxAge.Std())
	assert.Equal(t, 9090, cfg.MetricsPort)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8888, cfg.ListenPort)
	assert.Equal(t, "localhost:7777", cfg.Backend.Addr())
	assert.Equal(t, 60*time.Second, cfg.Cache.MaxAge.Std())
}

func TestLoad_InvalidDuration(t *testing.T) {
	_, err := Load(writeConfig(t, "backend:\n  timeout: fast\n"))
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad listen port", func(c *Config) { c.ListenPort = -1 }},
		{"ports collide", func(c *Config) { c.MetricsPort = c.ListenPort }},
		{"empty backend host", func(c *Config) { c.Backend.Host = "" }},
		{"bad backend port", func(c *Config) { c.Backend.Port = 70000 }},
		{"zero max age", func(c *Config) { c.Cache.MaxAge = 0 }},
		{"bad line size", func(c *Config) { c.MaxLineSize = "lots" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
