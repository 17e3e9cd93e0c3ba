package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100, cfg.Episode.StreamLength)
	assert.Equal(t, 1000, cfg.Episode.Rewards.Good)
	assert.Equal(t, 10, cfg.Episode.Rewards.Living)
	assert.Equal(t, -20, cfg.Episode.Rewards.Bad)
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("KEYENV_LOG_LEVEL", "")
	t.Setenv("KEYENV_ADDR", "")
	path := filepath.Join(t.TempDir(), "keyenv.yaml")

	cfg := DefaultConfig()
	cfg.Runner.Workers = 8
	cfg.Storage.Kind = "sqlite"
	cfg.Episode.Rewards.Bad = -50
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	t.Setenv("KEYENV_LOG_LEVEL", "DEBUG")
	path := filepath.Join(t.TempDir(), "keyenv.yaml")
	require.NoError(t, os.WriteFile(path, []byte("runner:\n  workers: 2\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Runner.Workers)
	assert.Equal(t, 100, cfg.Episode.StreamLength)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("KEYENV_LOG_LEVEL", "")
	t.Setenv("KEYENV_ADDR", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"odd stream", func(c *Config) { c.Episode.StreamLength = 99 }},
		{"no workers", func(c *Config) { c.Runner.Workers = 0 }},
		{"storage kind", func(c *Config) { c.Storage.Kind = "s3" }},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"no addr", func(c *Config) { c.Server.Addr = "" }},
		{"selector", func(c *Config) { c.Runner.Selector = "dqn" }},
		{"negative episodes", func(c *Config) { c.Runner.Episodes = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
