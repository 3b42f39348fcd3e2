package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures everything needed to initialise the ingestion pipeline.
type Config struct {
	DB      SQLConfig     `yaml:"db"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Media   MediaConfig   `yaml:"media"`
	Logging LoggingConfig `yaml:"logging"`
}

// SQLConfig describes the relational database holding asset records.
type SQLConfig struct {
	Driver          string   `yaml:"driver"`
	DSN             string   `yaml:"dsn"`
	MaxOpenConns    int      `yaml:"max_open_conns"`
	MaxIdleConns    int      `yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
	CreateIfMissing bool     `yaml:"create_if_missing"`
	AutoMigrate     bool     `yaml:"auto_migrate"`
}

// FetchConfig controls HTTP retrieval of image bytes.
type FetchConfig struct {
	UserAgent        string          `yaml:"user_agent"`
	ConnectTimeout   Duration        `yaml:"connect_timeout"`
	RequestTimeout   Duration        `yaml:"request_timeout"`
	MaxBodyBytes     int64           `yaml:"max_body_bytes"`
	MinBodyBytes     int64           `yaml:"min_body_bytes"`
	RateLimitPerHost RateLimitConfig `yaml:"rate_limit_per_host"`
	PerHostDelay     Duration        `yaml:"per_host_delay"`
}

// RateLimitConfig applies a token bucket per origin host.
type RateLimitConfig struct {
	Requests int      `yaml:"requests"`
	Window   Duration `yaml:"window"`
}

// IngestConfig controls per-call parallelism and path allocation bounds.
type IngestConfig struct {
	Concurrency     int `yaml:"concurrency"`
	QueueSize       int `yaml:"queue_size"`
	MaxPathAttempts int `yaml:"max_path_attempts"`
}

// MediaConfig controls the optional local cache of fetched image bytes.
type MediaConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Directory string `yaml:"directory"`
}

// LoggingConfig controls log verbosity and output format.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Structured bool   `yaml:"structured"`
}

// Default returns the configuration matching the reference behaviour:
// sequential processing, 5s connect / 7s total fetch timeouts, and the
// minimum body size policy disabled.
func Default() Config {
	return Config{
		Fetch: FetchConfig{
			ConnectTimeout: DurationFrom(5 * time.Second),
			RequestTimeout: DurationFrom(7 * time.Second),
			MaxBodyBytes:   20 * 1024 * 1024,
		},
		Ingest: IngestConfig{
			Concurrency:     1,
			QueueSize:       16,
			MaxPathAttempts: 10000,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a YAML configuration file, layered over Default.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Fetch.ConnectTimeout.Duration <= 0 {
		return errors.New("fetch.connect_timeout must be positive")
	}
	if c.Fetch.RequestTimeout.Duration <= 0 {
		return errors.New("fetch.request_timeout must be positive")
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		return errors.New("fetch.max_body_bytes must be positive")
	}
	if c.Fetch.MinBodyBytes < 0 {
		return errors.New("fetch.min_body_bytes cannot be negative")
	}
	if c.Ingest.Concurrency <= 0 {
		return errors.New("ingest.concurrency must be positive")
	}
	if c.Ingest.QueueSize <= 0 {
		return errors.New("ingest.queue_size must be positive")
	}
	if c.Ingest.MaxPathAttempts <= 0 {
		return errors.New("ingest.max_path_attempts must be positive")
	}
	if c.Media.Enabled && c.Media.Directory == "" {
		return errors.New("media.directory required when media cache enabled")
	}
	return nil
}
