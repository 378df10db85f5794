// Package config loads the pywr CLI's configuration in three tiers: built-in
// defaults, an optional YAML file, then environment variables layered on
// top, last write wins.
package config

import (
	"fmt"
	"time"
)

// Config is the whole of what a pywr run can be tuned by.
type Config struct {
	App    AppConfig    `koanf:"app"`
	Log    LogConfig    `koanf:"log"`
	Run    RunConfig    `koanf:"run"`
	Solver SolverConfig `koanf:"solver"`
	Serve  ServeConfig  `koanf:"serve"`
}

// AppConfig carries identifying metadata: the application name and the
// deployment environment.
type AppConfig struct {
	Name        string `koanf:"name"`
	Environment string `koanf:"environment"` // development, staging, production
}

// LogConfig configures internal/logging's slog handler.
type LogConfig struct {
	Level      string `koanf:"level"`       // debug, info, warn, error
	Format     string `koanf:"format"`      // json, text
	Output     string `koanf:"output"`      // stdout, stderr, file
	FilePath   string `koanf:"file_path"`
	MaxSize    int  `koanf:"max_size"`    // MB, file output only
	MaxBackups int  `koanf:"max_backups"`
	MaxAge     int  `koanf:"max_age"` // days
	Compress   bool `koanf:"compress"`
}

// RunConfig bounds a `pywr run` invocation's resource use.
type RunConfig struct {
	MaxWorkers int           `koanf:"max_workers"` // 0 = runtime.NumCPU()
	Timeout    time.Duration `koanf:"timeout"`     // 0 = no deadline
}

// SolverConfig maps onto solver.Options (Tolerance -> Epsilon).
type SolverConfig struct {
	Tolerance     float64       `koanf:"tolerance"`
	MaxIterations int           `koanf:"max_iterations"`
	Timeout       time.Duration `koanf:"timeout"`
}

// ServeConfig configures the optional long-running `pywr serve` mode
// (internal/server); a CLI-only `pywr run` never reads this section.
type ServeConfig struct {
	HTTP      HTTPConfig      `koanf:"http"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Tracing   TracingConfig   `koanf:"tracing"`
	Cache     CacheConfig     `koanf:"cache"`
	Database  DatabaseConfig  `koanf:"database"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

type HTTPConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Port      int    `koanf:"port"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
}

type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

type CacheConfig struct {
	Backend string        `koanf:"backend"` // memory, redis
	Addr    string        `koanf:"addr"`
	TTL     time.Duration `koanf:"ttl"`
}

type DatabaseConfig struct {
	DSN             string        `koanf:"dsn"`
	MaxConns        int           `koanf:"max_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RateLimitConfig struct {
	Enabled           bool `koanf:"enabled"`
	RequestsPerMinute int  `koanf:"requests_per_minute"`
	Burst             int  `koanf:"burst"`
}

// Validate checks the handful of fields that would otherwise fail
// confusingly deep inside solver/run code.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	if c.Run.MaxWorkers < 0 {
		return fmt.Errorf("run.max_workers: must be >= 0, got %d", c.Run.MaxWorkers)
	}
	if c.Solver.Tolerance < 0 {
		return fmt.Errorf("solver.tolerance: must be >= 0, got %g", c.Solver.Tolerance)
	}
	return nil
}
