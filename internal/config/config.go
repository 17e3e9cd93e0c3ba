// Package config loads the keyenv YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"svw.info/playfair/internal/domain"
)

// Config holds all keyenv configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Episode EpisodeConfig `yaml:"episode"`
	Runner  RunnerConfig  `yaml:"runner"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP environment endpoint.
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// EpisodeConfig configures stream production and rewards.
type EpisodeConfig struct {
	StreamLength int            `yaml:"stream_length" validate:"gt=0,even"`
	Corpus       string         `yaml:"corpus"` // text file; empty means random plaintext
	Rewards      domain.Rewards `yaml:"rewards"`
}

// RunnerConfig configures batch runs.
type RunnerConfig struct {
	Workers  int    `yaml:"workers" validate:"gt=0"`
	Episodes int    `yaml:"episodes" validate:"gte=0"`
	Selector string `yaml:"selector" validate:"omitempty,oneof=oracle uniform random"`
	Seed     uint64 `yaml:"seed"`
}

// StorageConfig selects where finished episodes are kept.
type StorageConfig struct {
	Kind string `yaml:"kind" validate:"omitempty,oneof=fs sqlite none"`
	Path string `yaml:"path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level       string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Episode: EpisodeConfig{
			StreamLength: 100,
			Rewards:      domain.DefaultRewards(),
		},
		Runner: RunnerConfig{
			Workers:  4,
			Episodes: 100,
			Selector: "oracle",
			Seed:     1,
		},
		Storage: StorageConfig{Kind: "fs", Path: "./data"},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("KEYENV_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("KEYENV_ADDR"); v != "" {
		c.Server.Addr = v
	}
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	_ = configValidate.RegisterValidation("even", func(fl validator.FieldLevel) bool {
		return fl.Field().Int()%2 == 0
	})
}

// Validate rejects values the episode machinery cannot run with.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
