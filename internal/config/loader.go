package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "PYWR_"

// Loader assembles a Config from defaults, an optional YAML file, and
// environment variables, each tier overriding the last.
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
	envPrefix   string
}

// NewLoader builds a Loader with the engine's default search path.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k: koanf.New("."),
		configPaths: []string{
			"pywr.yaml",
			"config/pywr.yaml",
			"/etc/pywr/pywr.yaml",
		},
		envPrefix: envPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoaderOption customizes a Loader before Load runs.
type LoaderOption func(*Loader)

// WithConfigPaths overrides the file search path, tried in order; the
// first one that exists wins.
func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) { l.configPaths = paths }
}

// Load runs defaults -> file -> env and validates the result.
func (l *Loader) Load() (*Config, error) {
	if err := l.loadDefaults(); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := l.loadConfigFile(); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if err := l.k.Load(env.Provider(l.envPrefix, ".", func(s string) string {
		if s == l.envPrefix+"LOG" {
			// The bare PYWR_LOG variable selects the log level.
			return "log.level"
		}
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, l.envPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *Loader) loadDefaults() error {
	defaults := map[string]any{
		"app.name":        "pywr",
		"app.environment": "development",

		"log.level":       "info",
		"log.format":      "json",
		"log.output":      "stdout",
		"log.max_size":    100,
		"log.max_backups": 3,
		"log.max_age":     7,
		"log.compress":    true,

		"run.max_workers": 0,

		"solver.tolerance":      1e-9,
		"solver.max_iterations": 10000,
		"solver.timeout":        0,

		"serve.http.port":          8080,
		"serve.metrics.enabled":    true,
		"serve.metrics.port":       9090,
		"serve.metrics.path":       "/metrics",
		"serve.metrics.namespace":  "pywr",
		"serve.tracing.enabled":    false,
		"serve.cache.backend":      "memory",
		"serve.rate_limit.enabled": false,
	}
	return l.k.Load(confmap.Provider(defaults, "."), nil)
}

func (l *Loader) loadConfigFile() error {
	for _, path := range l.configPaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return l.k.Load(file.Provider(path), yaml.Parser())
	}
	return nil
}

// MustLoad loads a Config or panics, for callers where a broken config is
// always a fatal startup error anyway.
func MustLoad(opts ...LoaderOption) *Config {
	cfg, err := NewLoader(opts...).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}
