// Package config loads the boardstore configuration from boardstore.yaml and
// BOARDSTORE_ environment variables.
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// Name is the config file name without extension
const Name = "boardstore"

// EnvPrefix prefixes every environment override, e.g. BOARDSTORE_DATABASE_URI
const EnvPrefix = "BOARDSTORE"

// Config represents the boardstore configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Signal   SignalConfig   `mapstructure:"signal"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Timezone string         `mapstructure:"timezone"`
}

// DatabaseConfig represents the document store connection
type DatabaseConfig struct {
	URI string `mapstructure:"uri"`
	// System is the database holding the metadata collections
	System string `mapstructure:"system"`
	// Prefix is prepended to every database name
	Prefix   string        `mapstructure:"prefix"`
	KeepTime time.Duration `mapstructure:"keep_time"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// CacheConfig represents the metadata cache
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Size    int  `mapstructure:"size"`
}

// SignalConfig represents the peer notification settings
type SignalConfig struct {
	Servers     []string      `mapstructure:"servers"`
	Self        string        `mapstructure:"self"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Concurrency int           `mapstructure:"concurrency"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Address returns host:port
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Location returns the configured timezone
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SetDefaults registers every default on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.system", "system")
	v.SetDefault("database.prefix", "")
	v.SetDefault("database.keep_time", "20s")
	v.SetDefault("database.timeout", "10s")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.size", 1024)

	v.SetDefault("signal.servers", []string{})
	v.SetDefault("signal.self", "")
	v.SetDefault("signal.timeout", "5s")
	v.SetDefault("signal.concurrency", 8)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 7000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("timezone", "UTC")
}

// New returns a viper instance with defaults, env binding and the config
// search path set. file, when not empty, replaces the search path.
func New(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration. A missing config file in the search path
// means defaults; a missing explicit file is an error.
func Load(file string) (*Config, error) {
	return FromViper(New(file))
}

// FromViper reads, decodes and validates the configuration held by v
func FromViper(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %d", cfg.Server.Port)
	}
	if strings.TrimSpace(cfg.Database.System) == "" {
		return fmt.Errorf("database.system must not be empty")
	}
	if cfg.Cache.Enabled && cfg.Cache.Size <= 0 {
		return fmt.Errorf("cache.size must be positive when the cache is enabled, got: %d", cfg.Cache.Size)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("timezone %q is not a known location: %w", cfg.Timezone, err)
	}
	return nil
}
