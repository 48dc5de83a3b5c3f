// Package config loads application configuration from an optional
// config.yaml plus GFN_-prefixed environment variables.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	API     APIConfig     `yaml:"api" mapstructure:"api"`
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	Lake    LakeConfig    `yaml:"lake" mapstructure:"lake"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Quality QualityConfig `yaml:"quality" mapstructure:"quality"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// APIConfig configures the upstream Global Footprint Network API client.
type APIConfig struct {
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	Key             string `yaml:"key" mapstructure:"key"`
	Username        string `yaml:"username" mapstructure:"username"`
	MetaTimeoutSecs int    `yaml:"meta_timeout_secs" mapstructure:"meta_timeout_secs"`
	BulkTimeoutSecs int    `yaml:"bulk_timeout_secs" mapstructure:"bulk_timeout_secs"`
	// Mock serves deterministic fixture data instead of calling the
	// upstream, for smoke runs without credentials.
	Mock bool `yaml:"mock" mapstructure:"mock"`
}

// ExtractConfig configures bulk extraction behavior.
type ExtractConfig struct {
	StartYear         int     `yaml:"start_year" mapstructure:"start_year"`
	EndYear           int     `yaml:"end_year" mapstructure:"end_year"`
	BatchSize         int     `yaml:"batch_size" mapstructure:"batch_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// LakeConfig configures the raw/processed landing directory.
type LakeConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// StoreConfig configures the destination sink.
type StoreConfig struct {
	// Destination selects the sink: "sqlite" or "postgres".
	Destination string `yaml:"destination" mapstructure:"destination"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// QualityConfig configures the data quality gate.
type QualityConfig struct {
	ChecksPath string `yaml:"checks_path" mapstructure:"checks_path"`
	WarnOnly   bool   `yaml:"warn_only" mapstructure:"warn_only"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GFN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	// Every key gets a default so AutomaticEnv can override it.
	v.SetDefault("api.base_url", "https://api.footprintnetwork.org/v1")
	v.SetDefault("api.key", "")
	v.SetDefault("api.username", "any-user-name")
	v.SetDefault("api.mock", false)
	v.SetDefault("api.meta_timeout_secs", 15)
	v.SetDefault("api.bulk_timeout_secs", 60)
	v.SetDefault("extract.start_year", 2010)
	v.SetDefault("extract.end_year", 2024)
	v.SetDefault("extract.batch_size", 3)
	v.SetDefault("extract.requests_per_second", 5.0)
	v.SetDefault("extract.burst", 8)
	v.SetDefault("lake.dir", "./data")
	v.SetDefault("store.destination", "sqlite")
	v.SetDefault("store.sqlite_path", "./gfn.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("quality.checks_path", "quality.yaml")
	v.SetDefault("quality.warn_only", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
