package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig             `mapstructure:"server"`
	Database  DatabaseConfig           `mapstructure:"database"`
	Logging   LoggingConfig            `mapstructure:"logging"`
	Indexers  map[string]IndexerConfig `mapstructure:"indexers"`
	Search    SearchConfig             `mapstructure:"search"`
	Scheduler SchedulerConfig          `mapstructure:"scheduler"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// IndexerConfig holds per-indexer configuration. Domain overrides the
// first link of the built-in site definition when set.
type IndexerConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Domain     string `mapstructure:"domain"`
	Timeout    int    `mapstructure:"timeout"`
	Difficulty int    `mapstructure:"difficulty"`
}

// SearchConfig holds search aggregation configuration.
type SearchConfig struct {
	MaxConcurrent int `mapstructure:"max_concurrent"`
	DefaultLimit  int `mapstructure:"default_limit"`
}

// SchedulerConfig holds background task configuration.
type SchedulerConfig struct {
	HealthCheckCron      string `mapstructure:"health_check_cron"`
	HistoryRetentionDays int    `mapstructure:"history_retention_days"`
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.sabueso")
	}

	v.SetEnvPrefix("SABUESO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults + env vars
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 9117)

	// Database defaults
	v.SetDefault("database.path", "./data/sabueso.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")

	// Indexer defaults; the domain comes from the site definition
	// unless overridden here.
	v.SetDefault("indexers.dontorrent.enabled", true)
	v.SetDefault("indexers.dontorrent.domain", "")
	v.SetDefault("indexers.dontorrent.timeout", 30)
	v.SetDefault("indexers.dontorrent.difficulty", 3)

	// Search defaults
	v.SetDefault("search.max_concurrent", 4)
	v.SetDefault("search.default_limit", 100)

	// Scheduler defaults
	v.SetDefault("scheduler.health_check_cron", "*/15 * * * *")
	v.SetDefault("scheduler.history_retention_days", 30)
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
