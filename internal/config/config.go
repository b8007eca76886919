// Package config provides configuration management for infraprobe.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the probe configuration. It is built once at startup and
// passed into each probe flow.
type Config struct {
	Project     string        `mapstructure:"project"`
	Environment string        `mapstructure:"environment"`
	Region      string        `mapstructure:"region"`
	Storage     StorageConfig `mapstructure:"storage"`
	Cache       CacheConfig   `mapstructure:"cache"`
	Secrets     SecretsConfig `mapstructure:"secrets"`
	AWS         AWSConfig     `mapstructure:"aws"`
	Logging     LoggingConfig `mapstructure:"logging"`
}

// StorageConfig holds object storage probe settings.
type StorageConfig struct {
	Roles       []string `mapstructure:"roles"`
	EndpointURL string   `mapstructure:"endpoint_url"`
}

// CacheConfig holds cache probe settings.
type CacheConfig struct {
	Role           string        `mapstructure:"role"`
	DefaultPort    int           `mapstructure:"default_port"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ValueTTL       time.Duration `mapstructure:"value_ttl"`
}

// SecretsConfig holds secrets store settings.
type SecretsConfig struct {
	EndpointURL string `mapstructure:"endpoint_url"`
}

// AWSConfig holds optional credential overrides. When empty, the default
// AWS credential chain is used.
type AWSConfig struct {
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Profile   string `mapstructure:"profile"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Project:     "passit",
		Environment: "dev",
		Region:      "ap-northeast-2",
		Storage: StorageConfig{
			Roles: []string{"uploads", "logs", "backup"},
		},
		Cache: CacheConfig{
			Role:           "valkey",
			DefaultPort:    6379,
			ConnectTimeout: 5 * time.Second,
			ValueTTL:       60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load reads configuration from environment variables on top of the defaults.
// Variables use the INFRAPROBE_ prefix, e.g. INFRAPROBE_REGION or
// INFRAPROBE_STORAGE_ENDPOINT_URL.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()

	// Every key needs a default so AutomaticEnv can bind it
	v.SetDefault("project", cfg.Project)
	v.SetDefault("environment", cfg.Environment)
	v.SetDefault("region", cfg.Region)
	v.SetDefault("storage.roles", cfg.Storage.Roles)
	v.SetDefault("storage.endpoint_url", cfg.Storage.EndpointURL)
	v.SetDefault("cache.role", cfg.Cache.Role)
	v.SetDefault("cache.default_port", cfg.Cache.DefaultPort)
	v.SetDefault("cache.connect_timeout", cfg.Cache.ConnectTimeout)
	v.SetDefault("cache.value_ttl", cfg.Cache.ValueTTL)
	v.SetDefault("secrets.endpoint_url", cfg.Secrets.EndpointURL)
	v.SetDefault("aws.access_key", cfg.AWS.AccessKey)
	v.SetDefault("aws.secret_key", cfg.AWS.SecretKey)
	v.SetDefault("aws.profile", cfg.AWS.Profile)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetEnvPrefix("INFRAPROBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports whether the configuration can drive a probe run.
func (c *Config) Validate() error {
	var errs []error
	if c.Project == "" {
		errs = append(errs, errors.New("project must not be empty"))
	}
	if c.Environment == "" {
		errs = append(errs, errors.New("environment must not be empty"))
	}
	if c.Region == "" {
		errs = append(errs, errors.New("region must not be empty"))
	}
	if len(c.Storage.Roles) == 0 {
		errs = append(errs, errors.New("storage roles must not be empty"))
	}
	for _, role := range c.Storage.Roles {
		if strings.TrimSpace(role) == "" {
			errs = append(errs, errors.New("storage roles must not contain empty names"))
			break
		}
	}
	if c.Cache.Role == "" {
		errs = append(errs, errors.New("cache role must not be empty"))
	}
	if c.Cache.ConnectTimeout <= 0 {
		errs = append(errs, errors.New("cache connect timeout must be positive"))
	}
	if c.Cache.ValueTTL <= 0 {
		errs = append(errs, errors.New("cache value TTL must be positive"))
	}
	return errors.Join(errs...)
}
