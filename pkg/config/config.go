// Package config provides the configuration system for Strata. A single
// Config structure covers the store connection, serialization defaults and
// observability settings, loaded from a YAML file and environment variables
// via viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level Strata configuration.
type Config struct {
	Store         StoreConfig         `mapstructure:"store" yaml:"store"`
	Serialization SerializationConfig `mapstructure:"serialization" yaml:"serialization"`
	Observability ObservabilityConfig `mapstructure:"observability" yaml:"observability"`
}

// StoreConfig identifies the remote object store.
type StoreConfig struct {
	// Backend selects the store implementation: azure, s3, gcs or file
	Backend string `mapstructure:"backend" yaml:"backend"`
	// ConnectionString is the backend connection string (azure) or root
	// path (file)
	ConnectionString string `mapstructure:"connection_string" yaml:"connection_string"`
	// Container is the filesystem/container/bucket objects are stored in
	Container string `mapstructure:"container" yaml:"container"`
	// Region is the bucket region (s3)
	Region string `mapstructure:"region" yaml:"region"`
	// CredentialsFile points at a service account key (gcs)
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
	// RetryDelay is the pause between the delete and re-upload of the
	// conflict fallback
	RetryDelay time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
}

// SerializationConfig holds serialization defaults.
type SerializationConfig struct {
	// Format is the default serialization format: json or parquet
	Format string `mapstructure:"format" yaml:"format"`
	// Compression is the payload compression for row-oriented uploads
	// (none, gzip, snappy, lz4, zstd)
	Compression string `mapstructure:"compression" yaml:"compression"`
	// ParquetCompression is the page compression inside columnar
	// containers (snappy, gzip, zstd, lz4, none)
	ParquetCompression string `mapstructure:"parquet_compression" yaml:"parquet_compression"`
}

// ObservabilityConfig holds logging and tracing settings.
type ObservabilityConfig struct {
	LogLevel          string  `mapstructure:"log_level" yaml:"log_level"`
	LogEncoding       string  `mapstructure:"log_encoding" yaml:"log_encoding"`
	EnableTracing     bool    `mapstructure:"enable_tracing" yaml:"enable_tracing"`
	TracingSampleRate float64 `mapstructure:"tracing_sample_rate" yaml:"tracing_sample_rate"`
}

// Default returns a Config with production-ready defaults.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:    "file",
			RetryDelay: 500 * time.Millisecond,
		},
		Serialization: SerializationConfig{
			Format:             "parquet",
			Compression:        "none",
			ParquetCompression: "snappy",
		},
		Observability: ObservabilityConfig{
			LogLevel:          "info",
			LogEncoding:       "json",
			EnableTracing:     false,
			TracingSampleRate: 0.1,
		},
	}
}

// Load reads configuration from the given YAML file, overlaid with
// STRATA_-prefixed environment variables, on top of the defaults. An empty
// path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("STRATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	v.SetDefault("store.backend", cfg.Store.Backend)
	v.SetDefault("store.retry_delay", cfg.Store.RetryDelay)
	v.SetDefault("serialization.format", cfg.Serialization.Format)
	v.SetDefault("serialization.compression", cfg.Serialization.Compression)
	v.SetDefault("serialization.parquet_compression", cfg.Serialization.ParquetCompression)
	v.SetDefault("observability.log_level", cfg.Observability.LogLevel)
	v.SetDefault("observability.log_encoding", cfg.Observability.LogEncoding)
	v.SetDefault("observability.tracing_sample_rate", cfg.Observability.TracingSampleRate)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "azure", "s3", "gcs", "file":
	default:
		return fmt.Errorf("unknown store backend: %s", c.Store.Backend)
	}
	if c.Store.Backend != "file" && c.Store.Container == "" {
		return fmt.Errorf("store container is required for backend %s", c.Store.Backend)
	}
	if c.Store.Backend == "azure" && c.Store.ConnectionString == "" {
		return fmt.Errorf("connection string is required for the azure backend")
	}
	switch c.Serialization.Format {
	case "json", "parquet":
	default:
		return fmt.Errorf("unknown serialization format: %s", c.Serialization.Format)
	}
	if c.Store.RetryDelay < 0 {
		return fmt.Errorf("retry_delay cannot be negative")
	}
	if c.Observability.TracingSampleRate < 0 || c.Observability.TracingSampleRate > 1 {
		return fmt.Errorf("tracing_sample_rate must be within [0, 1]")
	}
	return nil
}
