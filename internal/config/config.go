// Package config loads prerender.yaml.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/prerender/internal/foundation/errors"
)

// DefaultFile is the config file looked up when --config is not given.
const DefaultFile = "prerender.yaml"

// Config is the resolved build configuration consumed by the prerender run.
type Config struct {
	Root            string           `yaml:"root"`
	Pages           string           `yaml:"pages"`
	OutDir          string           `yaml:"out_dir"`
	Prerender       *PrerenderConfig `yaml:"prerender,omitempty"`
	ClientRouting   bool             `yaml:"client_routing"`
	PageContextInit map[string]any   `yaml:"page_context_init,omitempty"`
	Output          OutputConfig     `yaml:"output"`
	Report          string           `yaml:"report,omitempty"`
	History         string           `yaml:"history,omitempty"`
	Metrics         MetricsConfig    `yaml:"metrics"`
	Logging         LoggingConfig    `yaml:"logging"`

	// Warnings collected while loading (outdated options).
	Warnings []string `yaml:"-"`
	// Path the config was loaded from; empty for defaults.
	Path string `yaml:"-"`
}

// OutputConfig selects where pre-rendered files go.
type OutputConfig struct {
	Sink SinkKind   `yaml:"sink"`
	NATS NATSConfig `yaml:"nats"`
}

// NATSConfig configures the NATS output sink.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// MetricsConfig configures Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// LoggingConfig configures the default slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Load reads the config at path. An empty path returns defaults.
// .env and .env.local next to the config file are loaded first and never
// override variables already set in the environment.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	loadEnvFiles(filepath.Dir(path))

	// #nosec G304 -- path is provided by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError(fmt.Sprintf("configuration file not found: %s", path)).Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").
			WithContext("path", path).Build()
	}
	cfg, err := Parse([]byte(os.ExpandEnv(string(data))))
	if err != nil {
		return nil, err
	}
	cfg.Path = path
	if !filepath.IsAbs(cfg.Root) {
		cfg.Root = filepath.Join(filepath.Dir(path), cfg.Root)
	}
	return cfg, nil
}

// Parse decodes a config document and applies defaults.
func Parse(data []byte) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse config").Build()
	}
	if err := rejectDeprecated(&doc); err != nil {
		return nil, err
	}

	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		if err := doc.Decode(cfg); err != nil {
			return nil, errors.WrapError(err, errors.CategoryConfig, "failed to decode config").Build()
		}
	}
	if cfg.Prerender != nil {
		for _, name := range cfg.Prerender.outdated {
			cfg.Warnings = append(cfg.Warnings,
				fmt.Sprintf("The config `prerender.%s` is outdated and has no effect: remove it", name))
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Validate checks values the decoder cannot.
func (c *Config) Validate() error {
	if _, err := sinkNormalizer.NormalizeWithValidation(string(c.Output.Sink)); err != nil {
		return errors.ConfigError(err.Error()).WithContext("field", "output.sink").Build()
	}
	if sinkNormalizer.Normalize(string(c.Output.Sink)) == SinkNATS && c.Output.NATS.URL == "" {
		return errors.ConfigError("output.nats.url is required when output.sink is nats").Build()
	}
	if _, err := logFormatNormalizer.NormalizeWithValidation(string(c.Logging.Format)); err != nil {
		return errors.ConfigError(err.Error()).WithContext("field", "logging.format").Build()
	}
	if _, err := logLevelNormalizer.NormalizeWithValidation(string(c.Logging.Level)); err != nil {
		return errors.ConfigError(err.Error()).WithContext("field", "logging.level").Build()
	}
	return nil
}

// Enabled reports whether the prerender option is switched on.
func (c *Config) Enabled() bool {
	return c.Prerender != nil && c.Prerender.Enabled
}

// PagesDir returns the absolute page source directory.
func (c *Config) PagesDir() string {
	return c.resolve(c.Pages)
}

// OutputDir returns the absolute output directory.
func (c *Config) OutputDir() string {
	return c.resolve(c.OutDir)
}

// ResolvePath resolves an optional path against Root. Empty stays empty.
func (c *Config) ResolvePath(p string) string {
	if p == "" {
		return ""
	}
	return c.resolve(p)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

func loadEnvFiles(dir string) {
	for _, name := range []string{".env", ".env.local"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		// godotenv.Load never overrides variables that are already set.
		_ = godotenv.Load(p)
	}
}
