// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/spf13/viper"

	"cohortly/internal/pkg/vocabulary"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Analysis settings
	MaxUploadSizeMb     int    `mapstructure:"maxuploadsizemb"`
	ExcludeEventPattern string `mapstructure:"excludeeventpattern"`
	Workers             int    `mapstructure:"workers"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		c, err := Load()
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		cfg = c
	})
	return cfg
}

// Load reads defaults and environment variables into a fresh Config.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("appname", "cohortly")
	v.SetDefault("appport", "3000")
	v.SetDefault("environment", Development)
	v.SetDefault("loglevel", string(LogLevelDebug))
	v.SetDefault("logsdir", "logs")
	v.SetDefault("logsmaxsizeinmb", 20)
	v.SetDefault("logsmaxbackups", 10)
	v.SetDefault("logsmaxageindays", 30)
	v.SetDefault("maxuploadsizemb", 50)
	v.SetDefault("excludeeventpattern", "")
	v.SetDefault("workers", 4)

	v.BindEnv("appname", "COHORTLY_APP_NAME")
	v.BindEnv("appport", "COHORTLY_APP_PORT")
	v.BindEnv("environment", "COHORTLY_ENV")
	v.BindEnv("loglevel", "COHORTLY_LOG_LEVEL")
	v.BindEnv("logsdir", "COHORTLY_LOGS_DIR")
	v.BindEnv("logsmaxsizeinmb", "COHORTLY_LOGS_MAX_SIZE_IN_MB")
	v.BindEnv("logsmaxbackups", "COHORTLY_LOGS_MAX_BACKUPS")
	v.BindEnv("logsmaxageindays", "COHORTLY_LOGS_MAX_AGE_IN_DAYS")
	v.BindEnv("maxuploadsizemb", "COHORTLY_MAX_UPLOAD_SIZE_MB")
	v.BindEnv("excludeeventpattern", "COHORTLY_EXCLUDE_EVENT_PATTERN")
	v.BindEnv("workers", "COHORTLY_WORKERS")

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	validLevels := map[LogLevel]bool{
		LogLevelDebug: true,
		LogLevelInfo:  true,
		LogLevelWarn:  true,
		LogLevelError: true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	if c.MaxUploadSizeMb <= 0 {
		return fmt.Errorf("max upload size must be positive, got %d", c.MaxUploadSizeMb)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.ExcludeEventPattern != "" {
		if err := vocabulary.Validate(c.ExcludeEventPattern); err != nil {
			return fmt.Errorf("invalid exclude event pattern %q: %w", c.ExcludeEventPattern, err)
		}
	}

	return nil
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// MaxUploadBytes returns the request body limit for CSV uploads.
func (c *Config) MaxUploadBytes() int {
	return c.MaxUploadSizeMb * 1024 * 1024
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
