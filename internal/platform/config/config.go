// Package config provides configuration loading and management using koanf.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Defaults shared with the packages that fall back to them.
const (
	DefaultServerPort     = 8080
	DefaultMaxRequestSize = 1 << 20

	DefaultClientRetryMaxAttempts     = 3
	DefaultClientRetryMultiplier      = 2.0
	DefaultClientRetryJitterFactor    = 0.25
	DefaultClientCircuitMaxFailures   = 5
	DefaultClientCircuitHalfOpenLimit = 3

	DefaultTransportMaxIdleConns        = 100
	DefaultTransportMaxIdleConnsPerHost = 10
	DefaultTransportIdleConnTimeout     = 90 * time.Second

	DefaultLogFileMaxSizeMB  = 100
	DefaultLogFileMaxBackups = 3
	DefaultLogFileMaxAgeDays = 28

	// DefaultMirrorMaxItems caps how many remote posts are read as quotes.
	DefaultMirrorMaxItems = 10

	// DefaultMirrorUserID is sent as the owner of pushed quotes.
	DefaultMirrorUserID = 1
)

// Config is the root configuration structure.
type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Auth      AuthConfig      `koanf:"auth"`
	Client    ClientConfig    `koanf:"client"`
	Services  ServicesConfig  `koanf:"services"`
	Store     StoreConfig     `koanf:"store"`
	Sync      SyncConfig      `koanf:"sync"`
	Messages  MessagesConfig  `koanf:"messages"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev qa prod test"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"             validate:"required,min=1,max=65535"`
	Host            string        `koanf:"host"             validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"required,min=1s"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"required,min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required,min=1s"`
	MaxRequestSize  int64         `koanf:"max_request_size" validate:"required,min=1"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=trace debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig contains rolling log file settings.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"       validate:"required_if=Enabled true"`
	MaxSizeMB  int    `koanf:"max_size"   validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"    validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig contains OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true,omitempty,url"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
}

// AuthConfig guards the import and sync routes. The gateway in front of the
// service authenticates callers and forwards the subject in SubjectHeader.
type AuthConfig struct {
	Enabled       bool   `koanf:"enabled"`
	SubjectHeader string `koanf:"subject_header" validate:"required_if=Enabled true"`
}

// ClientConfig contains HTTP client settings for downstream services.
type ClientConfig struct {
	Timeout        time.Duration        `koanf:"timeout"         validate:"required,min=100ms"`
	Retry          RetryConfig          `koanf:"retry"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker"`
	Transport      TransportConfig      `koanf:"transport"`
}

// RetryConfig contains retry settings for HTTP clients.
type RetryConfig struct {
	MaxAttempts     int           `koanf:"max_attempts"     validate:"required,min=1,max=10"`
	InitialInterval time.Duration `koanf:"initial_interval" validate:"required,min=10ms"`
	MaxInterval     time.Duration `koanf:"max_interval"     validate:"required,min=100ms"`
	Multiplier      float64       `koanf:"multiplier"       validate:"required,min=1.1,max=10"`
	JitterFactor    float64       `koanf:"jitter_factor"    validate:"min=0,max=1"`
}

// CircuitBreakerConfig contains circuit breaker settings for HTTP clients.
type CircuitBreakerConfig struct {
	MaxFailures   int           `koanf:"max_failures"    validate:"required,min=1"`
	Timeout       time.Duration `koanf:"timeout"         validate:"required,min=1s"`
	HalfOpenLimit int           `koanf:"half_open_limit" validate:"required,min=1"`
}

// TransportConfig contains HTTP transport pool settings.
type TransportConfig struct {
	MaxIdleConns        int           `koanf:"max_idle_conns"         validate:"required,min=1"`
	MaxIdleConnsPerHost int           `koanf:"max_idle_conns_per_host" validate:"required,min=1"`
	IdleConnTimeout     time.Duration `koanf:"idle_conn_timeout"      validate:"required,min=1s"`
}

// ServicesConfig contains configuration for downstream services.
type ServicesConfig struct {
	Mirror MirrorServiceConfig `koanf:"mirror"`
}

// MirrorServiceConfig describes the remote JSON mirror quotes are synced with.
type MirrorServiceConfig struct {
	BaseURL  string `koanf:"base_url"  validate:"required,url"`
	Name     string `koanf:"name"      validate:"required"`
	Path     string `koanf:"path"      validate:"required,startswith=/"`
	MaxItems int    `koanf:"max_items" validate:"required,min=1,max=100"`
	Category string `koanf:"category"  validate:"required"`
	UserID   int    `koanf:"user_id"   validate:"required,min=1"`
}

// StoreConfig selects where the quote collection and session state live.
type StoreConfig struct {
	Driver       string `koanf:"driver"        validate:"required,oneof=sqlite memory"`
	Path         string `koanf:"path"          validate:"required_if=Driver sqlite"`
	SeedDefaults bool   `koanf:"seed_defaults"`
}

// SyncConfig controls the periodic reconciliation loop.
type SyncConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Interval   time.Duration `koanf:"interval"     validate:"required_if=Enabled true,omitempty,min=1s"`
	RunOnStart bool          `koanf:"run_on_start"`
}

// MessagesConfig controls how long user-facing status messages stay visible.
type MessagesConfig struct {
	TTL time.Duration `koanf:"ttl" validate:"required,min=100ms"`
}

type section = map[string]any

// defaults is the lowest configuration layer.
func defaults() map[string]any {
	return section{
		"app": section{
			"name":        "quotebook",
			"version":     "dev",
			"environment": "local",
		},
		"server": section{
			"port":             DefaultServerPort,
			"host":             "0.0.0.0",
			"read_timeout":     "30s",
			"write_timeout":    "30s",
			"idle_timeout":     "120s",
			"shutdown_timeout": "10s",
			"max_request_size": DefaultMaxRequestSize,
		},
		"log": section{
			"level":  "info",
			"format": "json",
			"file": section{
				"enabled":     false,
				"path":        "./logs/quotebook.log",
				"max_size":    DefaultLogFileMaxSizeMB,
				"max_backups": DefaultLogFileMaxBackups,
				"max_age":     DefaultLogFileMaxAgeDays,
				"compress":    true,
			},
		},
		"telemetry": section{
			"enabled":       false,
			"endpoint":      "",
			"service_name":  "quotebook",
			"sampling_rate": 1.0,
		},
		"auth": section{
			"enabled":        false,
			"subject_header": "X-User-ID",
		},
		"client": section{
			"timeout": "30s",
			"retry": section{
				"max_attempts":     DefaultClientRetryMaxAttempts,
				"initial_interval": "100ms",
				"max_interval":     "5s",
				"multiplier":       DefaultClientRetryMultiplier,
				"jitter_factor":    DefaultClientRetryJitterFactor,
			},
			"circuit_breaker": section{
				"max_failures":    DefaultClientCircuitMaxFailures,
				"timeout":         "30s",
				"half_open_limit": DefaultClientCircuitHalfOpenLimit,
			},
			"transport": section{
				"max_idle_conns":          DefaultTransportMaxIdleConns,
				"max_idle_conns_per_host": DefaultTransportMaxIdleConnsPerHost,
				"idle_conn_timeout":       "90s",
			},
		},
		"services": section{
			"mirror": section{
				"base_url":  "https://jsonplaceholder.typicode.com",
				"name":      "quote-mirror",
				"path":      "/posts",
				"max_items": DefaultMirrorMaxItems,
				"category":  "API",
				"user_id":   DefaultMirrorUserID,
			},
		},
		"store": section{
			"driver":        "sqlite",
			"path":          "./data/quotebook.db",
			"seed_defaults": true,
		},
		"sync": section{
			"enabled":      true,
			"interval":     "10s",
			"run_on_start": true,
		},
		"messages": section{
			"ttl": "3s",
		},
	}
}

// Load builds the configuration from, lowest precedence first: defaults,
// configs/base.yaml, configs/{profile}.yaml and APP_ environment variables.
// Missing files are skipped.
//
// Environment names resolve against the known keys, so APP_SYNC_RUN_ON_START
// sets sync.run_on_start. Unknown names map every "_" to a dot.
func Load(profile string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	files := []string{"configs/base.yaml"}
	if profile != "" {
		files = append(files, fmt.Sprintf("configs/%s.yaml", profile))
	}

	for _, path := range files {
		if err := loadFileIfExists(k, path); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	resolve := envResolver(k.Keys())
	if err := k.Load(env.Provider("APP_", ".", resolve), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

// envResolver maps APP_ variable names onto keys.
func envResolver(keys []string) func(string) string {
	known := make(map[string]string, len(keys))
	for _, key := range keys {
		known[strings.ReplaceAll(key, ".", "_")] = key
	}

	return func(name string) string {
		name = strings.ToLower(strings.TrimPrefix(name, "APP_"))
		if key, ok := known[name]; ok {
			return key
		}

		return strings.ReplaceAll(name, "_", ".")
	}
}

// loadFileIfExists loads a YAML file, treating a missing file as empty.
func loadFileIfExists(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return k.Load(file.Provider(path), yaml.Parser())
}
